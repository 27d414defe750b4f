package model

import (
	"fmt"
	"strings"

	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/ctypes"
	"github.com/raymyers/ctypemap/pkg/resolve"
	"github.com/raymyers/ctypemap/pkg/storage"
)

// EntryKind names the kind of declaration behind an entry
type EntryKind string

const (
	KindStruct   EntryKind = "struct"
	KindEnum     EntryKind = "enum"
	KindTypedef  EntryKind = "typedef"
	KindMacro    EntryKind = "macro"
	KindFunction EntryKind = "function"
	KindVariable EntryKind = "variable"
)

// Entry is one resolved declaration. Exactly one of the detail pointers is
// set, matching Kind.
type Entry struct {
	Kind     EntryKind      `yaml:"kind" json:"kind"`
	Name     string         `yaml:"name" json:"name"`
	Unit     string         `yaml:"unit" json:"unit"`
	Line     int            `yaml:"line" json:"line"`
	Doc      string         `yaml:"doc,omitempty" json:"doc,omitempty"`
	Struct   *StructEntry   `yaml:"struct,omitempty" json:"struct,omitempty"`
	Enum     *EnumEntry     `yaml:"enum,omitempty" json:"enum,omitempty"`
	Typedef  *TypeEntry     `yaml:"typedef,omitempty" json:"typedef,omitempty"`
	Macro    *MacroEntry    `yaml:"macro,omitempty" json:"macro,omitempty"`
	Function *FunctionEntry `yaml:"function,omitempty" json:"function,omitempty"`
	Variable *VariableEntry `yaml:"variable,omitempty" json:"variable,omitempty"`
}

type StructEntry struct {
	Size   int64                `yaml:"size" json:"size"`
	Align  int64                `yaml:"align" json:"align"`
	Fields []FieldEntry         `yaml:"fields" json:"fields"`
	Holes  []ctypes.Hole        `yaml:"holes,omitempty" json:"holes,omitempty"`
	Layout *ctypes.StructLayout `yaml:"-" json:"-"`
}

type FieldEntry struct {
	Name    string       `yaml:"name" json:"name"`
	Type    string       `yaml:"type" json:"type"`
	Offset  int64        `yaml:"offset" json:"offset"`
	Size    int64        `yaml:"size" json:"size"`
	Storage storage.Kind `yaml:"storage" json:"storage"`
	Doc     string       `yaml:"doc,omitempty" json:"doc,omitempty"`
}

type EnumEntry struct {
	Size  int64       `yaml:"size" json:"size"`
	Items []EnumValue `yaml:"items" json:"items"`
}

type EnumValue struct {
	Label string `yaml:"label" json:"label"`
	Value uint32 `yaml:"value" json:"value"`
	Doc   string `yaml:"doc,omitempty" json:"doc,omitempty"`
}

type TypeEntry struct {
	Type     string       `yaml:"type" json:"type"`
	Size     int64        `yaml:"size" json:"size"`
	Align    int64        `yaml:"align" json:"align"`
	Storage  storage.Kind `yaml:"storage" json:"storage"`
	Resolved ctypes.Type  `yaml:"-" json:"-"`
}

// MacroEntry holds a macro value. Empty defines have no value.
type MacroEntry struct {
	Empty   bool          `yaml:"empty,omitempty" json:"empty,omitempty"`
	Int     *int64        `yaml:"int,omitempty" json:"int,omitempty"`
	String  *string       `yaml:"string,omitempty" json:"string,omitempty"`
	Bits    int           `yaml:"bits,omitempty" json:"bits,omitempty"`
	Storage *storage.Kind `yaml:"storage,omitempty" json:"storage,omitempty"`
}

type ParamEntry struct {
	Name    string       `yaml:"name,omitempty" json:"name,omitempty"`
	Type    string       `yaml:"type" json:"type"`
	Storage storage.Kind `yaml:"storage" json:"storage"`
}

type FunctionEntry struct {
	Params  []ParamEntry `yaml:"params" json:"params"`
	Return  ParamEntry   `yaml:"return" json:"return"`
	HasBody bool         `yaml:"has_body,omitempty" json:"has_body,omitempty"`
}

type VariableEntry struct {
	Type    string       `yaml:"type" json:"type"`
	Size    int64        `yaml:"size" json:"size"`
	Extern  bool         `yaml:"extern,omitempty" json:"extern,omitempty"`
	Storage storage.Kind `yaml:"storage" json:"storage"`
	Init    []InitEntry  `yaml:"init,omitempty" json:"init,omitempty"`
}

type InitEntry struct {
	Field  string `yaml:"field,omitempty" json:"field,omitempty"`
	Offset int64  `yaml:"offset" json:"offset"`
	Value  string `yaml:"value" json:"value"` // "&" for address constants
}

func buildEntry(r *resolve.Resolver, d cabs.Decl) (*Entry, error) {
	e := &Entry{Name: d.DeclName(), Line: d.DeclLine(), Doc: d.DeclDoc()}

	switch d := d.(type) {
	case cabs.StructDecl:
		l, err := r.Struct(d.Name)
		if err != nil {
			return nil, err
		}
		e.Kind = KindStruct
		e.Struct = structEntry(l)
		docs := make(map[string]string, len(d.Fields))
		for _, f := range d.Fields {
			docs[f.Name] = f.Doc
		}
		for i := range e.Struct.Fields {
			e.Struct.Fields[i].Doc = docs[e.Struct.Fields[i].Name]
		}

	case cabs.EnumDecl:
		l, err := r.Enum(d.Name)
		if err != nil {
			return nil, err
		}
		e.Kind = KindEnum
		e.Enum = &EnumEntry{Size: l.Size}
		docs := make(map[string]string, len(d.Items))
		for _, item := range d.Items {
			docs[item.Label] = item.Doc
		}
		for _, item := range l.Items {
			e.Enum.Items = append(e.Enum.Items, EnumValue{Label: item.Label, Value: item.Value, Doc: docs[item.Label]})
		}

	case cabs.TypedefDecl:
		t, err := r.Typedef(d.Name)
		if err != nil {
			return nil, err
		}
		e.Kind = KindTypedef
		e.Typedef = &TypeEntry{
			Type:     t.String(),
			Size:     t.Size(),
			Align:    t.Align(),
			Storage:  storage.Classify(t),
			Resolved: t,
		}

	case cabs.MacroDecl:
		e.Kind = KindMacro
		e.Macro = &MacroEntry{Empty: d.Body == nil}
		if d.Body == nil {
			break
		}
		v, err := r.Macro(d.Name)
		if err != nil {
			return nil, err
		}
		kind := storage.ClassifyMacro(v)
		e.Macro.Storage = &kind
		if kind.Class == storage.String {
			e.Macro.String = &v.Str
		} else {
			e.Macro.Int = &v.Int
			e.Macro.Bits = v.Bits
		}

	case cabs.FunctionDecl:
		sig, err := r.Function(d.Name)
		if err != nil {
			return nil, err
		}
		e.Kind = KindFunction
		e.Function = &FunctionEntry{
			Return:  ParamEntry{Type: sig.Return.String(), Storage: storage.Classify(sig.Return)},
			HasBody: sig.HasBody,
		}
		for _, p := range sig.Params {
			e.Function.Params = append(e.Function.Params,
				ParamEntry{Name: p.Name, Type: p.Type.String(), Storage: storage.Classify(p.Type)})
		}

	case cabs.VarDecl:
		v, err := r.Var(d.Name)
		if err != nil {
			return nil, err
		}
		e.Kind = KindVariable
		e.Variable = &VariableEntry{
			Type:    v.Type.String(),
			Size:    v.Type.Size(),
			Extern:  v.Extern,
			Storage: storage.Classify(v.Type),
		}
		for _, iv := range v.Init {
			val := "&"
			if iv.Value != nil {
				val = iv.Value.String()
			}
			e.Variable.Init = append(e.Variable.Init, InitEntry{Field: iv.Field, Offset: iv.Offset, Value: val})
		}
	}
	return e, nil
}

func structEntry(l *ctypes.StructLayout) *StructEntry {
	s := &StructEntry{Size: l.Size, Align: l.Align, Holes: l.Holes, Layout: l}
	for _, f := range storage.Fields(l) {
		ft, _ := l.Field(f.Name)
		s.Fields = append(s.Fields, FieldEntry{
			Name:    f.Name,
			Type:    ft.Type.String(),
			Offset:  f.Offset,
			Size:    ft.Type.Size(),
			Storage: f.Kind,
		})
	}
	return s
}

// Summary renders the entry on one line, without its name
func (e *Entry) Summary() string {
	var sb strings.Builder
	switch e.Kind {
	case KindStruct:
		fmt.Fprintf(&sb, "size=%d align=%d", e.Struct.Size, e.Struct.Align)
		for _, f := range e.Struct.Fields {
			fmt.Fprintf(&sb, " %s@%d:%s", f.Name, f.Offset, f.Storage)
		}
	case KindEnum:
		fmt.Fprintf(&sb, "size=%d", e.Enum.Size)
		for _, item := range e.Enum.Items {
			fmt.Fprintf(&sb, " %s=%d", item.Label, item.Value)
		}
	case KindTypedef:
		fmt.Fprintf(&sb, "%s size=%d %s", e.Typedef.Type, e.Typedef.Size, e.Typedef.Storage)
	case KindMacro:
		switch {
		case e.Macro.Empty:
			sb.WriteString("empty")
		case e.Macro.String != nil:
			fmt.Fprintf(&sb, "%q %s", *e.Macro.String, e.Macro.Storage)
		default:
			fmt.Fprintf(&sb, "%d %s", *e.Macro.Int, e.Macro.Storage)
		}
	case KindFunction:
		params := make([]string, len(e.Function.Params))
		for i, p := range e.Function.Params {
			params[i] = strings.TrimSpace(p.Type + " " + p.Name)
		}
		fmt.Fprintf(&sb, "(%s) %s", strings.Join(params, ", "), e.Function.Return.Type)
	case KindVariable:
		fmt.Fprintf(&sb, "%s size=%d %s", e.Variable.Type, e.Variable.Size, e.Variable.Storage)
		if e.Variable.Extern {
			sb.WriteString(" extern")
		}
		for _, iv := range e.Variable.Init {
			if iv.Field != "" {
				fmt.Fprintf(&sb, " .%s@%d=%s", iv.Field, iv.Offset, iv.Value)
			} else {
				fmt.Fprintf(&sb, " @%d=%s", iv.Offset, iv.Value)
			}
		}
	}
	return sb.String()
}
