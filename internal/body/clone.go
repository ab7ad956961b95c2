package body

// CloneMap records original→clone pairs keyed by object identity so that
// objects reachable from several places are cloned once. Post-processes run
// by Finalize resolve references that can only be fixed once every object
// has been cloned, such as a mounted body's parent link.
type CloneMap struct {
	clones      map[any]any
	postProcess []func()
}

func NewCloneMap() *CloneMap {
	return &CloneMap{clones: make(map[any]any)}
}

// Lookup returns the clone registered for orig.
func Lookup[T any](cm *CloneMap, orig *T) (*T, bool) {
	if cm == nil || orig == nil {
		return nil, false
	}
	c, ok := cm.clones[orig]
	if !ok {
		return nil, false
	}
	return c.(*T), true
}

// GetClone returns the clone registered for orig, creating it with fn on
// first use.
func GetClone[T any](cm *CloneMap, orig *T, fn func(*T) *T) *T {
	if orig == nil {
		return nil
	}
	if c, ok := Lookup(cm, orig); ok {
		return c
	}
	c := fn(orig)
	cm.clones[orig] = c
	return c
}

func (cm *CloneMap) Len() int { return len(cm.clones) }

func (cm *CloneMap) AddPostProcess(fn func()) {
	cm.postProcess = append(cm.postProcess, fn)
}

// Finalize runs and clears the pending post-processes.
func (cm *CloneMap) Finalize() {
	pending := cm.postProcess
	cm.postProcess = nil
	for _, fn := range pending {
		fn()
	}
}

func (cm *CloneMap) Clear() {
	cm.clones = make(map[any]any)
	cm.postProcess = nil
}

func cloneGeometry(g *Geometry) *Geometry {
	c := *g
	return &c
}

func cloneMaterials(m *MaterialTable) *MaterialTable {
	c := &MaterialTable{
		Friction:    make(map[string]float64, len(m.Friction)),
		Restitution: make(map[string]float64, len(m.Restitution)),
	}
	for k, v := range m.Friction {
		c.Friction[k] = v
	}
	for k, v := range m.Restitution {
		c.Restitution[k] = v
	}
	return c
}

func (l *Link) cloneWith(cm *CloneMap) *Link {
	c := *l
	c.parent, c.sibling, c.child, c.body = nil, nil, nil, nil
	c.Info = make(map[string]any, len(l.Info))
	for k, v := range l.Info {
		c.Info[k] = v
	}
	c.Shape = GetClone(cm, l.Shape, cloneGeometry)
	return &c
}

// Clone deep-copies the body through cm. The clone shares geometry and
// material tables with every other clone made through the same map.
func (b *Body) Clone(cm *CloneMap) *Body {
	return GetClone(cm, b, func(orig *Body) *Body {
		c := &Body{
			name:        orig.name,
			modelName:   orig.modelName,
			staticModel: orig.staticModel,
			materials:   GetClone(cm, orig.materials, cloneMaterials),
		}
		c.root = orig.root.cloneTree(cm)
		c.UpdateLinkTree()
		for _, d := range orig.devices {
			c.devices = append(c.devices, d.clone())
		}
		if parent := orig.root.parent; parent != nil && orig.root.HasParentBody() {
			cm.AddPostProcess(func() {
				if p, ok := Lookup(cm, parent); ok {
					c.root.parent = p
				}
			})
		}
		return c
	})
}

func (l *Link) cloneTree(cm *CloneMap) *Link {
	c := GetClone(cm, l, func(orig *Link) *Link { return orig.cloneWith(cm) })
	for child := l.child; child != nil; child = child.sibling {
		c.AppendChild(child.cloneTree(cm))
	}
	return c
}
