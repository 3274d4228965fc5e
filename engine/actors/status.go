package actors

import (
	"github.com/sasha-s/go-deadlock"
)

var terminateChan = make(chan struct{})
var waitGroup = &deadlock.WaitGroup{}

func SetTerminateChan(term chan struct{}) {
	terminateChan = term
}

func GetTerminateChan() chan struct{} {
	return terminateChan
}

// GetWaitGroup tracks minds that must flush to disk before the process exits.
func GetWaitGroup() *deadlock.WaitGroup {
	return waitGroup
}
