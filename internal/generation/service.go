// Package generation は生成モデルを用いたカリキュラム生成を提供する。
// 指示文と応答スキーマを組み立てて1回だけ呼び出し、応答を検証してCurriculumに変換する。
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/resource"
)

// timestampLayout はcreatedAtの書式(ミリ秒精度のISO 8601、UTC)。
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Recorder は生成結果の記録先。metrics.Collectorが実装する。
type Recorder interface {
	RecordGeneration(modelID, outcome string, duration time.Duration)
}

// ServiceConfig は生成サービスの設定。
type ServiceConfig struct {
	// DefaultModel はリクエストでモデルが指定されない場合に使用するモデル。
	DefaultModel string
	// Models は指定可能なモデルID。空の場合は制限しない。
	Models []string
}

// Service はカリキュラム生成を行う。ライブラリへの保存は行わない。
type Service struct {
	backend  Backend
	images   ImageFetcher
	recorder Recorder
	config   ServiceConfig
	now      func() time.Time
	newID    func() string
}

// NewService はServiceを生成する。imagesがnilの場合、画像URLの指定はエラーになる。
func NewService(backend Backend, images ImageFetcher, config ServiceConfig) *Service {
	return &Service{
		backend: backend,
		images:  images,
		config:  config,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// SetRecorder は生成結果の記録先を設定する。
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// ResolveModel はリクエストのモデル指定を解決する。
func (s *Service) ResolveModel(requested string) (string, error) {
	modelID := requested
	if modelID == "" {
		modelID = s.config.DefaultModel
	}
	if modelID == "" {
		return "", fmt.Errorf("%w: no model selected", ErrUnsupportedModel)
	}
	if len(s.config.Models) > 0 && !slices.Contains(s.config.Models, modelID) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, modelID)
	}
	return modelID, nil
}

// Generate はフォーム入力からカリキュラムを生成する。
// 呼び出しは1回のみで再試行しない。成功時は新しいID、version=1、
// リクエストの難易度、生成日時、使用モデルを設定して返す。
func (s *Service) Generate(ctx context.Context, req *Request) (*model.Curriculum, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	modelID, err := s.ResolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	images, err := s.collectImages(ctx, req)
	if err != nil {
		return nil, err
	}

	start := s.now()
	text, err := s.backend.Generate(ctx, Call{
		Model:  modelID,
		Prompt: BuildPrompt(req, len(images)),
		Images: images,
		Schema: ResponseSchema(),
	})
	elapsed := s.now().Sub(start)
	if err != nil {
		s.record(modelID, "failed", elapsed)
		slog.Error("curriculum generation failed",
			slog.String("model", modelID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	c, err := Parse(text)
	if err != nil {
		outcome := "malformed"
		if errors.Is(err, ErrSchemaViolation) {
			outcome = "schema_violation"
		}
		s.record(modelID, outcome, elapsed)
		slog.Warn("generation response rejected",
			slog.String("model", modelID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	id := s.newID()
	c.ID = id
	c.OriginalID = id
	c.Version = 1
	c.Difficulty = req.Difficulty
	c.CreatedAt = s.now().UTC().Format(timestampLayout)
	c.ModelUsed = modelID
	c.Rating = nil
	c.Feedback = ""
	resource.EnrichCurriculum(c, c.CourseTitle)

	s.record(modelID, "success", elapsed)
	slog.Info("curriculum generated",
		slog.String("id", id),
		slog.String("model", modelID),
		slog.Int("modules", len(c.Modules)),
		slog.Int("images", len(images)),
	)
	return c, nil
}

// collectImages はbase64画像のデコードと画像URLの取得を行う。
func (s *Service) collectImages(ctx context.Context, req *Request) ([][]byte, error) {
	images := make([][]byte, 0, len(req.SourceImages)+len(req.SourceImageURLs))
	for i, encoded := range req.SourceImages {
		data, err := DecodeImage(encoded)
		if err != nil {
			return nil, fmt.Errorf("source image %d: %w", i, err)
		}
		images = append(images, data)
	}

	if len(req.SourceImageURLs) > 0 && s.images == nil {
		return nil, fmt.Errorf("%w: image URLs are not supported", ErrInvalidImage)
	}
	for _, u := range req.SourceImageURLs {
		data, err := s.images.Fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	return images, nil
}

func (s *Service) record(modelID, outcome string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordGeneration(modelID, outcome, d)
	}
}
