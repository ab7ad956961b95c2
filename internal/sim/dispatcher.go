package sim

// Dispatcher runs tasks on the consumer side. Tasks must run one at a time
// in submission order. Flushes and the backend finalizer are dispatched.
//
// StopSimulation waits for the final flush, so it must not be called from
// the dispatcher's own goroutine; use RequestStop there.
type Dispatcher interface {
	Dispatch(task func())
}

type DispatcherFunc func(task func())

func (f DispatcherFunc) Dispatch(task func()) { f(task) }

// serialDispatcher is the default dispatcher: one goroutine per run.
type serialDispatcher struct {
	tasks chan func()
	done  chan struct{}
}

func newSerialDispatcher() *serialDispatcher {
	d := &serialDispatcher{
		tasks: make(chan func(), 16),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *serialDispatcher) loop() {
	defer close(d.done)
	for task := range d.tasks {
		task()
	}
}

func (d *serialDispatcher) Dispatch(task func()) {
	d.tasks <- task
}

// Close runs the queued tasks and stops the goroutine.
func (d *serialDispatcher) Close() {
	close(d.tasks)
	<-d.done
}
