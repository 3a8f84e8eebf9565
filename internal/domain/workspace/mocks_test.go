package workspace

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
	"github.com/stretchr/testify/mock"
)

type mockProblems struct{ mock.Mock }

func (m *mockProblems) Problem(ctx context.Context, id string) (*Problem, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*Problem)
	return p, args.Error(1)
}

type mockProgress struct{ mock.Mock }

func (m *mockProgress) Autosave(ctx context.Context, userID, problemID, source string) error {
	return m.Called(ctx, userID, problemID, source).Error(0)
}

func (m *mockProgress) Submit(ctx context.Context, userID, problemID, source string) (*Submission, error) {
	args := m.Called(ctx, userID, problemID, source)
	s, _ := args.Get(0).(*Submission)
	return s, args.Error(1)
}

func (m *mockProgress) Draft(ctx context.Context, userID string) (*Draft, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).(*Draft)
	return d, args.Error(1)
}

type mockAssistant struct{ mock.Mock }

func (m *mockAssistant) Ask(ctx context.Context, userID, problemID, message, source string) (string, error) {
	args := m.Called(ctx, userID, problemID, message, source)
	return args.String(0), args.Error(1)
}

type mockRecommender struct{ mock.Mock }

func (m *mockRecommender) Recommend(ctx context.Context, userID, problemID string) ([]string, error) {
	args := m.Called(ctx, userID, problemID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) History(ctx context.Context, userID string, page, size int) (*HistoryPage, error) {
	args := m.Called(ctx, userID, page, size)
	hp, _ := args.Get(0).(*HistoryPage)
	return hp, args.Error(1)
}

// echoEngine writes its source to stdout, or fails when the source starts
// with "raise ".
type echoEngine struct{}

func (echoEngine) Exec(_ context.Context, source string, stdout io.Writer) error {
	if msg, ok := strings.CutPrefix(source, "raise "); ok {
		_, _ = io.WriteString(stdout, "partial\n")
		return errors.New(msg)
	}
	_, err := io.WriteString(stdout, source)
	return err
}

func (echoEngine) Close() error { return nil }

func echoLoaders() LoaderFactory {
	return func() sandbox.Loader {
		return sandbox.LoaderFunc(func(context.Context) (sandbox.Engine, error) {
			return echoEngine{}, nil
		})
	}
}

func failingLoaders() LoaderFactory {
	return func() sandbox.Loader {
		return sandbox.LoaderFunc(func(context.Context) (sandbox.Engine, error) {
			return nil, errors.New("bootstrap fetch failed")
		})
	}
}

// blockingLoaders never finish loading until ctx is cancelled.
func blockingLoaders() LoaderFactory {
	return func() sandbox.Loader {
		return sandbox.LoaderFunc(func(ctx context.Context) (sandbox.Engine, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	}
}
