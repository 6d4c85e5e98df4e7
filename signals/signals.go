// Package signals maps OS signals to actions run outside signal context.
package signals

import (
	"os"
	"os/signal"
	"reflect"
	"sync/atomic"
	"syscall"
)

// Action is a function called when an OS signal is recieved.
type Action func()

// Mappings map OS signals to functions
type Mappings map[os.Signal]Action

// Allocate a 1-buffered channel for each signal and do a select
// over all channels - has to use reflect for dynamic numbers of select cases.
func signalHandler(mappings Mappings, ready chan<- struct{}) {
	cases := make([]reflect.SelectCase, len(mappings))
	actions := make([]Action, len(mappings))

	var idx = 0
	for sig, action := range mappings {
		sigch := make(chan os.Signal, 1)

		cases[idx].Dir = reflect.SelectRecv
		cases[idx].Chan = reflect.ValueOf(sigch)

		actions[idx] = action

		signal.Notify(sigch, sig)
		idx++
	}
	close(ready)

	for {
		chosen, _, _ := reflect.Select(cases)
		actions[chosen]()
	}
}

// RunSignalHandler spawns a go-routine which will call the provided Actions
// when receiving the corresponding signals. The signals are subscribed when it
// returns.
func RunSignalHandler(m Mappings) {
	ready := make(chan struct{})
	go signalHandler(m, ready)
	<-ready
}

// Terminate are the signals asking the process to shut down.
var Terminate = []os.Signal{os.Interrupt, syscall.SIGTERM}

// StopFlag returns mappings raising stop on any of the Terminate signals.
// The action only stores the flag.
func StopFlag(stop *atomic.Bool) Mappings {
	m := make(Mappings, len(Terminate))
	for _, sig := range Terminate {
		m[sig] = func() { stop.Store(true) }
	}
	return m
}
