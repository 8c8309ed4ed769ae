package archive

import "zipshelf/internal/model"

// Observer receives the events of one run, in order, on the run's goroutine.
// OnComplete is called once, after the last OnProgress, and only on success.
type Observer interface {
	OnProgress(percent int)
	OnComplete(outputPath string)
}

type ObserverFuncs struct {
	Progress func(percent int)
	Complete func(outputPath string)
}

func (o ObserverFuncs) OnProgress(percent int) {
	if o.Progress != nil {
		o.Progress(percent)
	}
}

func (o ObserverFuncs) OnComplete(outputPath string) {
	if o.Complete != nil {
		o.Complete(outputPath)
	}
}

// EventObserver converts callbacks into model.Event values for front-ends
// that forward them through a message loop.
func EventObserver(send func(model.Event)) Observer {
	return ObserverFuncs{
		Progress: func(percent int) {
			send(model.Event{Kind: model.EventProgress, Percent: percent})
		},
		Complete: func(outputPath string) {
			send(model.Event{Kind: model.EventComplete, Percent: 100, OutputPath: outputPath})
		},
	}
}

type multiObserver []Observer

func (m multiObserver) OnProgress(percent int) {
	for _, o := range m {
		o.OnProgress(percent)
	}
}

func (m multiObserver) OnComplete(outputPath string) {
	for _, o := range m {
		o.OnComplete(outputPath)
	}
}

// Multi fans events out to every non-nil observer.
func Multi(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}
