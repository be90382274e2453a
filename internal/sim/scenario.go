package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/varobj/internal/target"
)

// Scenario is a declarative description of a simulated program and
// the sequence of target stops to replay against it.
type Scenario struct {
	Language  string       `yaml:"language"`
	Types     []TypeSpec   `yaml:"types"`
	Globals   []VarSpec    `yaml:"globals"`
	Functions []FuncSpec   `yaml:"functions"`
	Stack     []FrameSpec  `yaml:"stack"`
	Watch     []string     `yaml:"watch"`
	Steps     [][]StepSpec `yaml:"steps"`
}

// TypeSpec declares one named type. Kind is one of struct, union,
// class, enum, typedef, pointer or array.
type TypeSpec struct {
	Name    string      `yaml:"name"`
	Kind    string      `yaml:"kind"`
	Of      string      `yaml:"of"`      // element/underlying type name
	Count   int         `yaml:"count"`   // array element count
	Size    int         `yaml:"size"`    // explicit byte size
	Virtual bool        `yaml:"virtual"` // class carries a vtable
	Bases   []string    `yaml:"bases"`
	Fields  []FieldSpec `yaml:"fields"`
}

type FieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Access string `yaml:"access"` // public (default), private, protected
}

type VarSpec struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

type FuncSpec struct {
	Name   string      `yaml:"name"`
	Blocks []BlockSpec `yaml:"blocks"` // outermost first, each nested in the previous
}

type BlockSpec struct {
	Start uint64    `yaml:"start"`
	End   uint64    `yaml:"end"`
	Vars  []VarSpec `yaml:"vars"`
}

type FrameSpec struct {
	Function string `yaml:"function"`
	PC       uint64 `yaml:"pc"`
}

// StepSpec is one mutation applied at a stop. Exactly one field is
// set per entry.
type StepSpec struct {
	Poke   *PokeSpec  `yaml:"poke,omitempty"`
	Point  *PointSpec `yaml:"point,omitempty"`
	Retag  *RetagSpec `yaml:"retag,omitempty"`
	Poison string     `yaml:"poison,omitempty"`
	Heal   string     `yaml:"heal,omitempty"`
	PC     *uint64    `yaml:"pc,omitempty"`
	Push   *FrameSpec `yaml:"push,omitempty"`
	Pop    int        `yaml:"pop,omitempty"`
}

type PokeSpec struct {
	Expr  string `yaml:"expr"`
	Value any    `yaml:"value"`
}

type PointSpec struct {
	Expr string `yaml:"expr"`
	At   string `yaml:"at"` // empty means null
}

type RetagSpec struct {
	Expr  string `yaml:"expr"`
	Class string `yaml:"class"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario from YAML text.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("bad scenario: %w", err)
	}
	return &sc, nil
}

// Build instantiates the scenario: registers types and functions,
// allocates globals and pushes the initial stack. Steps are not
// applied; replay them one at a time with Session.Apply.
func (sc *Scenario) Build() (*Session, error) {
	lang := target.LanguageC
	switch sc.Language {
	case "c++", "C++":
		lang = target.LanguageCPlusPlus
	case "java", "Java":
		lang = target.LanguageJava
	case "", "c", "C":
		lang = target.LanguageC
	default:
		return nil, fmt.Errorf("unknown language %q", sc.Language)
	}
	s := NewSession(lang)

	// Named aggregates may reference each other, so register shells
	// first and fill the bodies in a second pass.
	for _, ts := range sc.Types {
		kind, err := typeKind(ts.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", ts.Name, err)
		}
		s.DefineType(&target.Type{Name: ts.Name, Kind: kind})
	}
	for _, ts := range sc.Types {
		if err := s.fillType(&ts); err != nil {
			return nil, fmt.Errorf("type %s: %w", ts.Name, err)
		}
	}

	for _, g := range sc.Globals {
		t, ok := s.types[g.Type]
		if !ok {
			return nil, fmt.Errorf("global %s: unknown type %q", g.Name, g.Type)
		}
		s.AddGlobal(g.Name, t, normalizeInit(g.Value))
	}

	for _, fs := range sc.Functions {
		fn := &Function{Name: fs.Name}
		for _, bs := range fs.Blocks {
			bd := BlockDecl{Start: bs.Start, End: bs.End}
			for _, v := range bs.Vars {
				t, ok := s.types[v.Type]
				if !ok {
					return nil, fmt.Errorf("function %s: unknown type %q", fs.Name, v.Type)
				}
				bd.Vars = append(bd.Vars, VarDecl{Name: v.Name, Type: t, Init: normalizeInit(v.Value)})
			}
			fn.Blocks = append(fn.Blocks, bd)
		}
		s.DefineFunction(fn)
	}

	for _, fr := range sc.Stack {
		if _, err := s.PushFrame(fr.Function, fr.PC); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func typeKind(k string) (target.Kind, error) {
	switch k {
	case "struct":
		return target.KindStruct, nil
	case "union":
		return target.KindUnion, nil
	case "class":
		return target.KindClass, nil
	case "enum":
		return target.KindEnum, nil
	case "typedef":
		return target.KindTypedef, nil
	case "pointer":
		return target.KindPointer, nil
	case "array":
		return target.KindArray, nil
	default:
		return target.KindInvalid, fmt.Errorf("unknown kind %q", k)
	}
}

func (s *Session) fillType(ts *TypeSpec) error {
	t := s.types[ts.Name]

	resolve := func(name string) (*target.Type, error) {
		if r, ok := s.types[name]; ok {
			return r, nil
		}
		return nil, fmt.Errorf("unknown type %q", name)
	}

	switch t.Kind {
	case target.KindTypedef, target.KindPointer:
		of, err := resolve(ts.Of)
		if err != nil {
			return err
		}
		t.Elem = of
		t.Length = of.Length
		if t.Kind == target.KindPointer {
			t.Length = 8
		}

	case target.KindArray:
		of, err := resolve(ts.Of)
		if err != nil {
			return err
		}
		t.Elem = of
		t.Length = ts.Count * of.Length

	case target.KindEnum:
		t.Length = 4

	case target.KindStruct, target.KindUnion, target.KindClass:
		for _, b := range ts.Bases {
			bt, err := resolve(b)
			if err != nil {
				return err
			}
			t.Fields = append(t.Fields, target.Field{Name: bt.Name, Type: bt})
			t.NumBases++
			t.Length += bt.Length
		}
		if ts.Virtual {
			t.Fields = append(t.Fields, target.Field{
				Name:     "_vptr$" + ts.Name,
				Type:     target.PointerTo(s.types["void"]),
				IsVTable: true,
			})
			t.Length += 8
		}
		for _, f := range ts.Fields {
			ft, err := resolve(f.Type)
			if err != nil {
				return err
			}
			acc := target.AccessPublic
			switch f.Access {
			case "private":
				acc = target.AccessPrivate
			case "protected":
				acc = target.AccessProtected
			}
			t.Fields = append(t.Fields, target.Field{Name: f.Name, Type: ft, Access: acc})
			t.Length += ft.Length
		}
	}
	if ts.Size > 0 {
		t.Length = ts.Size
	}
	return nil
}

// normalizeInit maps YAML's decoded shapes onto the initializer
// shapes newCell understands.
func normalizeInit(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = normalizeInit(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalizeInit(e)
		}
		return out
	case int:
		return int64(v)
	default:
		return v
	}
}

// Apply replays one scripted stop: every mutation of the step runs,
// then the caller is expected to drive a variable-object update pass.
func (s *Session) Apply(step []StepSpec) error {
	for _, m := range step {
		switch {
		case m.Poke != nil:
			if err := s.Poke(m.Poke.Expr, normalizeInit(m.Poke.Value)); err != nil {
				return err
			}
		case m.Point != nil:
			if err := s.SetPointer(m.Point.Expr, m.Point.At); err != nil {
				return err
			}
		case m.Retag != nil:
			if err := s.Retag(m.Retag.Expr, m.Retag.Class); err != nil {
				return err
			}
		case m.Poison != "":
			if err := s.Poison(m.Poison); err != nil {
				return err
			}
		case m.Heal != "":
			if err := s.Unpoison(m.Heal); err != nil {
				return err
			}
		case m.PC != nil:
			s.SetPC(*m.PC)
		case m.Push != nil:
			if _, err := s.PushFrame(m.Push.Function, m.Push.PC); err != nil {
				return err
			}
		case m.Pop > 0:
			for i := 0; i < m.Pop; i++ {
				s.PopFrame()
			}
		}
	}
	return nil
}
