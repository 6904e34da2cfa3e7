package xpt

import (
	"slices"
	"strings"
	"sync"

	"github.com/wippyai/xpcom-bridge/errors"
	"github.com/wippyai/xpcom-bridge/nsid"
)

// Well-known interface identifiers.
var (
	ISupportsIID              = nsid.MustParse("{00000000-0000-0000-c000-000000000046}")
	IWeakReferenceIID         = nsid.MustParse("{9188bc85-f92e-11d2-81ef-0060083a0bcf}")
	ISupportsWeakReferenceIID = nsid.MustParse("{9188bc86-f92e-11d2-81ef-0060083a0bcf}")
)

// Typelib is an in-memory Oracle. It is safe for concurrent use.
type Typelib struct {
	byIID  map[nsid.ID]*Interface
	byName map[string]*Interface
	mu     sync.RWMutex
}

var _ Oracle = (*Typelib)(nil)

// NewTypelib creates a typelib holding the builtin interfaces
// nsISupports, nsIWeakReference and nsISupportsWeakReference.
func NewTypelib() *Typelib {
	lib := &Typelib{
		byIID:  make(map[nsid.ID]*Interface),
		byName: make(map[string]*Interface),
	}
	for _, iface := range builtins() {
		lib.byIID[iface.IID] = iface
		lib.byName[iface.Name] = iface
	}
	return lib
}

func builtins() []*Interface {
	supports := &Interface{
		Name:       "nsISupports",
		IID:        ISupportsIID,
		Scriptable: true,
		Methods: []*Method{
			{
				Name: "QueryInterface",
				Params: []Param{
					{Name: "uuid", Type: Scalar(IID), Dir: DirIn},
					{Name: "result", Type: Type{Tag: InterfaceIs, SizeIs: NoArg, IIDIs: 0}, Dir: DirOut | DirRetval},
				},
			},
			{Name: "AddRef", Hidden: true},
			{Name: "Release", Hidden: true},
		},
	}
	weakRef := &Interface{
		Name:       "nsIWeakReference",
		IID:        IWeakReferenceIID,
		Parent:     supports,
		Scriptable: true,
		Methods: []*Method{
			{
				Name: "QueryReferent",
				Params: []Param{
					{Name: "uuid", Type: Scalar(IID), Dir: DirIn},
					{Name: "result", Type: Type{Tag: InterfaceIs, SizeIs: NoArg, IIDIs: 0}, Dir: DirOut | DirRetval},
				},
			},
		},
	}
	supportsWeak := &Interface{
		Name:       "nsISupportsWeakReference",
		IID:        ISupportsWeakReferenceIID,
		Parent:     supports,
		Scriptable: true,
		Methods: []*Method{
			{
				Name: "GetWeakReference",
				Params: []Param{
					{Name: "_retval", Type: Type{Tag: InterfaceTag, Name: weakRef.Name, IID: weakRef.IID, SizeIs: NoArg, IIDIs: NoArg}, Dir: DirOut | DirRetval},
				},
			},
		},
	}
	return []*Interface{supports, weakRef, supportsWeak}
}

// Add registers an interface. Names and IIDs must be unique.
func (l *Typelib) Add(iface *Interface) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addLocked(iface)
}

func (l *Typelib) addLocked(iface *Interface) error {
	if iface.Name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "interface without a name")
	}
	if _, ok := l.byName[iface.Name]; ok {
		return errors.Duplicate(errors.PhaseLoad, "interface", iface.Name)
	}
	if _, ok := l.byIID[iface.IID]; ok {
		return errors.Duplicate(errors.PhaseLoad, "interface IID", iface.IID.String())
	}
	l.byIID[iface.IID] = iface
	l.byName[iface.Name] = iface
	return nil
}

// InterfaceByIID implements Oracle.
func (l *Typelib) InterfaceByIID(iid nsid.ID) (*Interface, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	iface, ok := l.byIID[iid]
	return iface, ok
}

// InterfaceByName implements Oracle.
func (l *Typelib) InterfaceByName(name string) (*Interface, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	iface, ok := l.byName[name]
	return iface, ok
}

// Interfaces returns every registered interface sorted by name.
func (l *Typelib) Interfaces() []*Interface {
	l.mu.RLock()
	out := make([]*Interface, 0, len(l.byName))
	for _, iface := range l.byName {
		out = append(out, iface)
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Interface) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len returns the number of registered interfaces.
func (l *Typelib) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byName)
}
