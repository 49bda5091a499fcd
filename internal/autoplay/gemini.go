package autoplay

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/tatianab/franco-game/internal/models"
	"github.com/tatianab/franco-game/internal/session"
)

//go:embed prompts/next_move.txt
var nextMovePrompt string

var nextMoveTemplate = template.Must(template.New("next_move").Funcs(sprig.TxtFuncMap()).Parse(nextMovePrompt))

// ErrUnparseable is returned when a model reply names no intent.
var ErrUnparseable = errors.New("reply names no move")

// GeminiPlayer asks a Gemini model for each move. When the model errors or
// answers with something that is not a move, the fallback player decides.
type GeminiPlayer struct {
	client   *genai.Client
	generate func(ctx context.Context, prompt string) (string, error)
	fallback Player
	logger   *zap.Logger
}

type NewGeminiPlayerOptions struct {
	APIKey   string
	Model    string
	Fallback Player
	Logger   *zap.Logger
}

func NewGeminiPlayer(ctx context.Context, opts NewGeminiPlayerOptions) (*GeminiPlayer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(opts.Model)

	p := newGeminiPlayer(func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no content returned from Gemini")
		}
		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return "", fmt.Errorf("unexpected response type from Gemini")
		}
		return string(text), nil
	}, opts.Fallback, opts.Logger)
	p.client = client
	return p, nil
}

func newGeminiPlayer(generate func(context.Context, string) (string, error), fallback Player, logger *zap.Logger) *GeminiPlayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiPlayer{generate: generate, fallback: fallback, logger: logger}
}

func (p *GeminiPlayer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func (p *GeminiPlayer) Next(ctx context.Context, turn Turn) (session.Intent, error) {
	prompt, err := renderPrompt(turn)
	if err != nil {
		return nil, err
	}

	reply, err := p.generate(ctx, prompt)
	if err == nil {
		var in session.Intent
		if in, err = ParseIntent(reply); err == nil {
			return in, nil
		}
	}
	if p.fallback == nil {
		return nil, err
	}
	p.logger.Warn("model gave no usable move, using fallback",
		zap.Int("turn", turn.Number),
		zap.String("reply", reply),
		zap.Error(err),
	)
	return p.fallback.Next(ctx, turn)
}

func renderPrompt(turn Turn) (string, error) {
	var item models.Item
	if turn.Room.Item.IsCollectible() && !turn.State.Has(turn.Room.Item) {
		item = turn.Room.Item
	}

	var buf bytes.Buffer
	err := nextMoveTemplate.Execute(&buf, struct {
		Turn Turn
		Item models.Item
		Goal int
	}{Turn: turn, Item: item, Goal: len(models.AllItems)})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// ParseIntent reads a move out of free text. The first word that names a
// direction or a pick-up wins.
func ParseIntent(reply string) (session.Intent, error) {
	words := strings.FieldsFunc(reply, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	for _, w := range words {
		switch strings.ToLower(w) {
		case "north", "south", "east", "west":
			dir, err := models.ParseDirection(w)
			if err != nil {
				return nil, err
			}
			return session.MoveIntent{Direction: dir}, nil
		case "collect", "grab", "take", "pick":
			return session.CollectIntent{}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnparseable, strings.TrimSpace(reply))
}
