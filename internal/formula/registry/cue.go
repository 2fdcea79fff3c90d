package registry

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/formulac/internal/formula"
)

// cueArg and cueSignature mirror the on-disk CUE shape:
//
//	functions: [{
//		name: "event_rate"
//		args: [{name: "field", type: "string"}]
//		returns:  "number"
//		category: "aggregation"
//	}]
type cueArg struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
}

type cueSignature struct {
	Name     string   `json:"name"`
	Args     []cueArg `json:"args"`
	Returns  string   `json:"returns"`
	Category string   `json:"category"`
	Help     string   `json:"help"`
}

// LoadCUE reads additional function signatures from a CUE definition file.
// The result can be registered into a Registry or passed as the validator's
// custom-function map.
func LoadCUE(path string) ([]*Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading function definitions: %w", err)
	}

	ctx := cuecontext.New()
	val := ctx.CompileBytes(data, cue.Filename(path))
	if val.Err() != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, val.Err())
	}

	fns := val.LookupPath(cue.ParsePath("functions"))
	if fns.Err() != nil {
		return nil, fmt.Errorf("%s: missing 'functions' list: %w", path, fns.Err())
	}

	var decoded []cueSignature
	if err := fns.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	sigs := make([]*Signature, 0, len(decoded))
	for _, cs := range decoded {
		sig, err := cs.toSignature()
		if err != nil {
			return nil, fmt.Errorf("%s: function '%s': %w", path, cs.Name, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func (cs cueSignature) toSignature() (*Signature, error) {
	if cs.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	ret, err := parseDataType(cs.Returns)
	if err != nil {
		return nil, err
	}

	cat, err := parseCategory(cs.Category)
	if err != nil {
		return nil, err
	}

	args := make([]ArgSpec, 0, len(cs.Args))
	for _, a := range cs.Args {
		t, err := parseDataType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("arg '%s': %w", a.Name, err)
		}
		args = append(args, ArgSpec{Name: a.Name, Type: t, Optional: a.Optional})
	}

	return &Signature{
		Name:     cs.Name,
		Args:     args,
		Returns:  ret,
		Category: cat,
		Help:     cs.Help,
	}, nil
}

func parseDataType(s string) (formula.DataType, error) {
	switch formula.DataType(s) {
	case formula.TypeNumber, formula.TypeString, formula.TypeBoolean, formula.TypeAny:
		return formula.DataType(s), nil
	case "":
		return formula.TypeNumber, nil
	default:
		return "", fmt.Errorf("unknown type %q", s)
	}
}

func parseCategory(s string) (Category, error) {
	switch s {
	case "math", "":
		return CategoryMath, nil
	case "comparison":
		return CategoryComparison, nil
	case "aggregation":
		return CategoryAggregation, nil
	case "time_series":
		return CategoryTimeSeries, nil
	default:
		return 0, fmt.Errorf("unknown category %q", s)
	}
}
