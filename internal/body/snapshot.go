package body

import "github.com/go-gl/mathgl/mgl64"

type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func PoseOf(T mgl64.Mat4) Pose {
	return Pose{
		Position: T.Col(3).Vec3(),
		Rotation: mgl64.Mat4ToQuat(T),
	}
}

func (p Pose) Mat4() mgl64.Mat4 {
	return mgl64.Translate3D(p.Position.Elem()).Mul4(p.Rotation.Mat4())
}

type DeviceState struct {
	Index  int
	On     bool
	Values []float64
}

// Snapshot is the state of one body at one frame. Snapshots are values: once
// taken they share no memory with the body they were taken from.
type Snapshot struct {
	Frame   int
	Time    float64
	Root    Pose
	Q       []float64
	DQ      []float64
	U       []float64
	Links   []Pose        // every link, only in all-link-position mode
	Devices []DeviceState // only devices that changed or when device output is on
}

type SnapshotOptions struct {
	AllLinkPositions bool
	AllDevices       bool
	// ChangedDevices lists device indices to record even when AllDevices is
	// off.
	ChangedDevices []int
}

// TakeSnapshot records the current state of b into s, reusing the slices s
// already holds.
func (b *Body) TakeSnapshot(s *Snapshot, opts SnapshotOptions) {
	n := len(b.joints)
	s.Q = resize(s.Q, n)
	s.DQ = resize(s.DQ, n)
	s.U = resize(s.U, n)
	for i, j := range b.joints {
		s.Q[i] = j.Joint.Q
		s.DQ[i] = j.Joint.DQ
		s.U[i] = j.Joint.U
	}
	s.Root = PoseOf(b.root.T)

	s.Links = s.Links[:0]
	if opts.AllLinkPositions {
		for _, l := range b.links {
			s.Links = append(s.Links, PoseOf(l.T))
		}
	}

	s.Devices = s.Devices[:0]
	switch {
	case opts.AllDevices:
		for i, d := range b.devices {
			s.Devices = append(s.Devices, d.state(i))
		}
	case len(opts.ChangedDevices) > 0:
		for _, i := range opts.ChangedDevices {
			if i >= 0 && i < len(b.devices) {
				s.Devices = append(s.Devices, b.devices[i].state(i))
			}
		}
	}
}

// ApplySnapshot restores joint state and root pose from s.
func (b *Body) ApplySnapshot(s *Snapshot) {
	for i, j := range b.joints {
		if i >= len(s.Q) {
			break
		}
		j.Joint.Q = s.Q[i]
		if i < len(s.DQ) {
			j.Joint.DQ = s.DQ[i]
		}
		if i < len(s.U) {
			j.Joint.U = s.U[i]
		}
	}
	if !b.root.HasParentBody() {
		b.root.T = s.Root.Mat4()
	}
	b.CalcForwardKinematics()
}

// Clone returns a copy of s that shares no memory with it.
func (s *Snapshot) Clone() Snapshot {
	c := *s
	c.Q = append([]float64(nil), s.Q...)
	c.DQ = append([]float64(nil), s.DQ...)
	c.U = append([]float64(nil), s.U...)
	c.Links = append([]Pose(nil), s.Links...)
	c.Devices = make([]DeviceState, len(s.Devices))
	for i, d := range s.Devices {
		c.Devices[i] = DeviceState{Index: d.Index, On: d.On, Values: append([]float64(nil), d.Values...)}
	}
	return c
}

func (d *Device) state(i int) DeviceState {
	return DeviceState{Index: i, On: d.On, Values: append([]float64(nil), d.Values...)}
}

func resize(s []float64, n int) []float64 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]float64, n)
}
