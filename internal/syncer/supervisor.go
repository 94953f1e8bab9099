package syncer

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"globemap/internal/logging"
)

// Supervisor restarts the render loop and background workers if they
// fail, logging lifecycle events through zerolog.
type Supervisor struct {
	root *suture.Supervisor
}

func NewSupervisor(name string) *Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	return &Supervisor{root: suture.New(name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   time.Second,
		Timeout:          2 * time.Second,
	})}
}

func (s *Supervisor) Add(svc suture.Service) suture.ServiceToken {
	return s.root.Add(svc)
}

// ServeBackground starts the tree; the channel yields its exit error.
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}
