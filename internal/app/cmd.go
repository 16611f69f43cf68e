package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"

	// 以下はローカルストレージ上で動作するコマンド。

	CommandSignUp   Command = "signup"
	CommandSignIn   Command = "signin"
	CommandSignOut  Command = "signout"
	CommandWhoAmI   Command = "whoami"
	CommandGenerate Command = "generate"
	CommandList     Command = "list"
	CommandShow     Command = "show"
	CommandRate     Command = "rate"
	CommandDelete   Command = "delete"
	CommandExport   Command = "export"
	CommandAsk      Command = "ask"
)

var knownCommands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
	"signup":      CommandSignUp,
	"signin":      CommandSignIn,
	"signout":     CommandSignOut,
	"whoami":      CommandWhoAmI,
	"generate":    CommandGenerate,
	"list":        CommandList,
	"show":        CommandShow,
	"rate":        CommandRate,
	"delete":      CommandDelete,
	"export":      CommandExport,
	"ask":         CommandAsk,
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}

// IsLocal はローカルストレージ上で動作するコマンドかどうかを返す。
func (c Command) IsLocal() bool {
	switch c {
	case CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck:
		return false
	default:
		return true
	}
}
