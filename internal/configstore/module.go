package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/billie-coop/configurator/internal/schema"
)

// Module names one functional area. The set is closed.
type Module string

const (
	ClientManager     Module = "clientManager"
	InvoiceCreator    Module = "invoiceCreator"
	ProjectManagement Module = "projectManagement"
	ProposalGenerator Module = "proposalGenerator"
	TimeTracking      Module = "timeTracking"
)

// ErrUnknownModule is returned for names outside the module set.
var ErrUnknownModule = errors.New("unknown config module")

// Modules returns every module in a stable order.
func Modules() []Module {
	return []Module{ClientManager, InvoiceCreator, ProjectManagement, ProposalGenerator, TimeTracking}
}

// Valid reports whether m is one of the known modules.
func (m Module) Valid() bool {
	switch m {
	case ClientManager, InvoiceCreator, ProjectManagement, ProposalGenerator, TimeTracking:
		return true
	}
	return false
}

// ParseModule converts a name into a Module.
func ParseModule(name string) (Module, error) {
	m := Module(name)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return m, nil
}

// Phase tracks a module slice through Clean -> Dirty -> Saving -> Clean,
// or back to Dirty with LastError set when a save fails.
type Phase int

const (
	PhaseClean Phase = iota
	PhaseDirty
	PhaseSaving
)

func (p Phase) String() string {
	switch p {
	case PhaseClean:
		return "clean"
	case PhaseDirty:
		return "dirty"
	case PhaseSaving:
		return "saving"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "clean":
		*p = PhaseClean
	case "dirty":
		*p = PhaseDirty
	case "saving":
		*p = PhaseSaving
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// ModuleState is the persisted editing state of one module.
type ModuleState struct {
	Values    map[string]any    `json:"values"`
	Errors    map[string]string `json:"errors"`
	Dirty     bool              `json:"isDirty"`
	Valid     bool              `json:"isValid"`
	Phase     Phase             `json:"phase"`
	LastError string            `json:"lastError,omitempty"`
	// Revision increases on every local change; a save only marks the
	// module clean if nothing changed while it was in flight.
	Revision int64 `json:"revision"`
}

// NewModuleState returns the pristine state every module starts from.
func NewModuleState() ModuleState {
	return ModuleState{
		Values: make(map[string]any),
		Errors: make(map[string]string),
		Valid:  true,
		Phase:  PhaseClean,
	}
}

// Clone returns a deep copy.
func (ms ModuleState) Clone() ModuleState {
	c := ms
	c.Values = make(map[string]any, len(ms.Values))
	for k, v := range ms.Values {
		c.Values[k] = schema.CloneValue(v)
	}
	c.Errors = maps.Clone(ms.Errors)
	if c.Errors == nil {
		c.Errors = make(map[string]string)
	}
	return c
}

func (ms *ModuleState) UnmarshalJSON(data []byte) error {
	type plain ModuleState
	p := plain(NewModuleState())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*ms = ModuleState(p)
	if ms.Values == nil {
		ms.Values = make(map[string]any)
	}
	if ms.Errors == nil {
		ms.Errors = make(map[string]string)
	}
	for k, v := range ms.Values {
		ms.Values[k] = schema.Normalize(v)
	}
	// A save cannot survive a restart.
	if ms.Phase == PhaseSaving {
		ms.Phase = PhaseDirty
	}
	return nil
}

// persisted is what the durable slot holds.
type persisted struct {
	Modules map[Module]ModuleState `json:"modules"`
}

func newPersisted() persisted {
	p := persisted{Modules: make(map[Module]ModuleState, len(Modules()))}
	for _, m := range Modules() {
		p.Modules[m] = NewModuleState()
	}
	return p
}

func (p persisted) clone() persisted {
	c := persisted{Modules: make(map[Module]ModuleState, len(Modules()))}
	// Every module always has an entry, even if the slot predates it.
	// Names outside the module set are dropped.
	for _, m := range Modules() {
		if ms, ok := p.Modules[m]; ok {
			c.Modules[m] = ms.Clone()
		} else {
			c.Modules[m] = NewModuleState()
		}
	}
	return c
}

// Snapshot is a point-in-time copy of the whole store.
type Snapshot struct {
	Modules map[Module]ModuleState
	Loading bool
	Error   string
}
