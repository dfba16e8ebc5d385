package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/moolen/bonvoyage/internal/pipeline"
)

// Observer forwards pipeline events to a Bubble Tea program.
func Observer(send func(tea.Msg)) pipeline.Observer {
	return pipeline.ObserverFunc(func(ev pipeline.Event) {
		switch ev.Type {
		case pipeline.EventStageStarted:
			send(StageStartedMsg{Stage: ev.Stage, Index: ev.Index, Total: ev.Total})
		case pipeline.EventStageCompleted:
			send(StageCompletedMsg{Stage: ev.Stage, Duration: ev.Duration})
		case pipeline.EventStageFailed:
			send(StageFailedMsg{Stage: ev.Stage, Err: ev.Err})
		}
	})
}

// PlainObserver prints one line per step. It is used when stdout is not a terminal.
func PlainObserver(w io.Writer, steps []Step) pipeline.Observer {
	labels := make(map[pipeline.StageID]string, len(steps))
	for _, s := range steps {
		labels[s.ID] = s.Label
	}
	total := len(steps) + 1

	var mu sync.Mutex
	return pipeline.ObserverFunc(func(ev pipeline.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch ev.Type {
		case pipeline.EventStageStarted:
			fmt.Fprintf(w, "Step %d/%d: %s...\n", ev.Index+1, total, labelFor(labels, ev.Stage))
		case pipeline.EventStageFailed:
			fmt.Fprintf(w, "%s %s failed: %v\n", iconError, labelFor(labels, ev.Stage), ev.Err)
		case pipeline.EventRunCompleted:
			fmt.Fprintf(w, "Step %d/%d: %s\n", total, total, finalizeLabel)
		}
	})
}

func labelFor(labels map[pipeline.StageID]string, id pipeline.StageID) string {
	if l, ok := labels[id]; ok && l != "" {
		return l
	}
	return string(id)
}
