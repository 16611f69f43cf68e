package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/hitoshi/edumap/internal/assistant"
	"github.com/hitoshi/edumap/internal/auth"
	"github.com/hitoshi/edumap/internal/config"
	"github.com/hitoshi/edumap/internal/export"
	"github.com/hitoshi/edumap/internal/generation"
	"github.com/hitoshi/edumap/internal/library"
	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/security"
)

// ErrNotSignedIn はサインインが必要なコマンドを未ログインで実行した場合のエラー。
var ErrNotSignedIn = errors.New("not signed in, run `edumap signin` first")

// localEnv はローカルコマンドの実行環境。
// ブラウザ版と同じく、認証プロバイダーとライブラリが1つのストレージを共有する。
// ログイン中のユーザーはプロバイダーの購読通知だけから更新する。
type localEnv struct {
	cfg      *config.Config
	storage  *Storage
	provider *auth.Provider
	library  *library.Store
	out      io.Writer

	unsubscribe func()

	mu       sync.Mutex
	user     *model.User
	notified int // 受け取った通知の回数(購読直後の1回を含む)
}

type localCommand func(ctx context.Context, env *localEnv, args []string) error

var localCommands = map[Command]localCommand{
	CommandSignUp:   cmdSignUp,
	CommandSignIn:   cmdSignIn,
	CommandSignOut:  cmdSignOut,
	CommandWhoAmI:   cmdWhoAmI,
	CommandGenerate: cmdGenerate,
	CommandList:     cmdList,
	CommandShow:     cmdShow,
	CommandRate:     cmdRate,
	CommandDelete:   cmdDelete,
	CommandExport:   cmdExport,
	CommandAsk:      cmdAsk,
}

func runLocal(ctx context.Context, cfg *config.Config, cmd Command, args []string, out io.Writer) error {
	fn, ok := localCommands[cmd]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmd)
	}

	env, err := newLocalEnv(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer env.close()

	return fn(ctx, env, args)
}

// newLocalEnv はストレージを開き、認証プロバイダーを購読した実行環境を返す。
func newLocalEnv(ctx context.Context, cfg *config.Config, out io.Writer) (*localEnv, error) {
	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := auth.NewRegistry(storage.KV)
	provider, err := auth.NewProvider(ctx, storage.KV, registry, auth.ProviderConfig{
		SignInDelay: cfg.AuthSignInDelay,
		SignUpDelay: cfg.AuthSignUpDelay,
	})
	if err != nil {
		storage.Close()
		return nil, err
	}

	env := &localEnv{
		cfg:      cfg,
		storage:  storage,
		provider: provider,
		library:  library.NewStore(storage.KV),
		out:      out,
	}
	env.unsubscribe = provider.Subscribe(env.observe)
	return env, nil
}

// observe は認証状態の変化を受け取る。
func (env *localEnv) observe(u *model.User) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.user = u
	env.notified++
}

// close は購読を解除してからプロバイダーとストレージを閉じる。
func (env *localEnv) close() {
	env.unsubscribe()
	env.provider.Dispose()
	env.storage.Close()
}

// newFlagSet はサブコマンド用のフラグセットを生成する。使い方の表示先はenv.out。
func newFlagSet(env *localEnv, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(env.out)
	return fs
}

// parseFlags はフラグを解析し、位置引数の数を検証する。
func parseFlags(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) < positional {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), positional, len(rest))
	}
	return rest, nil
}

func (env *localEnv) currentUser() (*model.User, error) {
	env.mu.Lock()
	u := env.user
	env.mu.Unlock()
	if u == nil {
		return nil, ErrNotSignedIn
	}
	return u, nil
}

func cmdSignUp(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "signup")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	name := fs.String("name", "", "display name")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	if _, err := env.provider.SignUp(ctx, *email, *password, *name); err != nil {
		return err
	}
	u, err := env.currentUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Signed up as %s <%s>\n", u.DisplayName, u.Email)
	return nil
}

func cmdSignIn(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "signin")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	if _, err := env.provider.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	u, err := env.currentUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Signed in as %s <%s>\n", u.DisplayName, u.Email)
	return nil
}

func cmdSignOut(ctx context.Context, env *localEnv, args []string) error {
	if err := env.provider.SignOut(ctx); err != nil {
		return err
	}
	if u, _ := env.currentUser(); u != nil {
		return fmt.Errorf("still signed in as %s after sign-out", u.Email)
	}
	fmt.Fprintln(env.out, "Signed out")
	return nil
}

func cmdWhoAmI(_ context.Context, env *localEnv, _ []string) error {
	u, err := env.currentUser()
	if err != nil {
		fmt.Fprintln(env.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(env.out, "%s <%s> (%s)\n", u.DisplayName, u.Email, u.UID)
	return nil
}

func cmdGenerate(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "generate")
	var req generation.Request
	var difficulty string
	var imageFiles []string
	fs.StringVar(&req.Title, "title", "", "course title")
	fs.StringVar(&req.Subject, "subject", "", "subject area")
	fs.StringVar(&req.Level, "level", "", "academic level, e.g. Undergraduate")
	fs.StringVar(&difficulty, "difficulty", string(model.DifficultyIntermediate), "Beginner, Intermediate or Advanced")
	fs.StringVar(&req.Duration, "duration", "", "course duration, e.g. 12 weeks")
	fs.StringVar(&req.Goals, "goals", "", "learning goals")
	fs.StringVar(&req.IndustryFocus, "industry", "", "industry focus")
	fs.StringVar(&req.Model, "model", "", "model id (default from the model catalog)")
	fs.StringSliceVar(&imageFiles, "image", nil, "source image file (repeatable)")
	fs.StringSliceVar(&req.SourceImageURLs, "image-url", nil, "source image URL (repeatable)")
	noSave := fs.Bool("no-save", false, "print the curriculum without saving it to the library")
	asJSON := fs.Bool("json", false, "print the curriculum as JSON")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}
	req.Difficulty = model.Difficulty(difficulty)

	u, err := env.currentUser()
	if err != nil {
		return err
	}

	for _, path := range imageFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		req.SourceImages = append(req.SourceImages, base64.StdEncoding.EncodeToString(data))
	}

	backend, err := newGenerationBackend(ctx, env.cfg)
	if err != nil {
		return err
	}
	c, err := newGenerationService(backend, env.cfg).Generate(ctx, &req)
	if err != nil {
		return err
	}

	if !*noSave {
		if _, err := env.library.Save(ctx, u.UID, c); err != nil {
			return err
		}
	}

	if *asJSON {
		return writeJSON(env.out, c)
	}
	fmt.Fprintf(env.out, "%s\t%s\n", c.ID, c.CourseTitle)
	return nil
}

func cmdList(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "list")
	var f library.Filter
	fs.StringVar(&f.Query, "query", "", "search title and description")
	fs.StringVar(&f.Subject, "subject", library.All, "subject filter")
	fs.StringVar(&f.Level, "level", library.All, "target audience filter")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}

	u, err := env.currentUser()
	if err != nil {
		return err
	}

	list, err := env.library.Search(ctx, u.UID, f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUDIENCE\tRATING")
	for _, c := range list {
		rating := "-"
		if c.Rating != nil {
			rating = fmt.Sprintf("%d/5", *c.Rating)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.CourseTitle, c.TargetAudience, rating)
	}
	return tw.Flush()
}

func cmdShow(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "show")
	asJSON := fs.Bool("json", false, "print the curriculum as JSON")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}

	c, err := env.lookup(ctx, rest[0])
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(env.out, c)
	}
	_, err = io.WriteString(env.out, export.Markdown(c))
	return err
}

func cmdRate(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "rate")
	rating := fs.Int("rating", 0, "rating from 1 to 5")
	feedback := fs.String("feedback", "", "free-form feedback")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}

	u, err := env.currentUser()
	if err != nil {
		return err
	}
	c, err := env.library.Rate(ctx, u.UID, rest[0], *rating, *feedback)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Rated %q %d/5\n", c.CourseTitle, *rating)
	return nil
}

func cmdDelete(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "delete")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}

	u, err := env.currentUser()
	if err != nil {
		return err
	}
	if err := env.library.Delete(ctx, u.UID, rest[0]); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Deleted %s\n", rest[0])
	return nil
}

func cmdExport(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "export")
	rawFormat := fs.String("format", string(export.FormatMarkdown), "md or html")
	output := fs.StringP("output", "o", "", "output file (default stdout)")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(*rawFormat)
	if err != nil {
		return err
	}
	c, err := env.lookup(ctx, rest[0])
	if err != nil {
		return err
	}

	body, err := export.NewExporter(security.NewContentSanitizer()).Render(c, format)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = env.out.Write(body)
		return err
	}
	if err := os.WriteFile(*output, body, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(env.out, "Wrote %s\n", *output)
	return nil
}

func cmdAsk(ctx context.Context, env *localEnv, args []string) error {
	fs := newFlagSet(env, "ask")
	view := fs.String("view", assistant.DefaultView, "view the question is asked from")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}

	backend, err := newGenerationBackend(ctx, env.cfg)
	if err != nil {
		return err
	}
	reply, err := assistant.NewService(backend, env.cfg.DefaultModel).Ask(ctx, *view, strings.Join(rest, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(env.out, reply)
	return nil
}

func (env *localEnv) lookup(ctx context.Context, id string) (*model.Curriculum, error) {
	u, err := env.currentUser()
	if err != nil {
		return nil, err
	}
	return env.library.Get(ctx, u.UID, id)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
