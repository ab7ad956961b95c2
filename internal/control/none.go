package control

// None leaves the body passive.
type None struct {
	port jointPort
}

func NewNone() *None {
	return &None{}
}

func (n *None) Name() string { return "none" }

func (n *None) Initialize(io IO) bool {
	n.port.attach(io)
	return true
}

func (n *None) Input()         {}
func (n *None) Control() error { return nil }
func (n *None) Output()        { n.port.output() }
func (n *None) Stop()          {}
