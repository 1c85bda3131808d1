package surface

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codefionn/auswahl/internal/config"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/protocol"
)

// Surface is one running picker program on the server's terminal.
type Surface struct {
	program *tea.Program
	done    chan struct{}
}

// Start launches the picker for one session. The surface terminates when the
// user dismisses it or a stop request arrives; Done reports that.
func Start(cfg config.UIConfig, matcher protocol.MatcherKind, events chan<- protocol.Event) (*Surface, error) {
	model := NewModel(cfg, matcher, events)
	program := tea.NewProgram(model, tea.WithAltScreen())

	s := &Surface{
		program: program,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if _, err := program.Run(); err != nil {
			logger.Error("Picker terminated abnormally: %v", err)
		}
		logger.Debug("Picker closed")
	}()

	return s, nil
}

// Dispatch queues a client request for the program. Requests sent after the
// program ended are dropped.
func (s *Surface) Dispatch(req protocol.Request) {
	s.program.Send(requestMsg{req: req})
}

// Done is closed once the program has terminated and the terminal is
// restored.
func (s *Surface) Done() <-chan struct{} {
	return s.done
}
