package sandbox

import (
	"path"
	"reflect"

	"sheetlens/domain/frame"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var frameSymbols = map[string]reflect.Value{
	"Column":  reflect.ValueOf((*frame.Column)(nil)),
	"Grouped": reflect.ValueOf((*frame.Grouped)(nil)),
	"Kind":    reflect.ValueOf((*frame.Kind)(nil)),
	"Row":     reflect.ValueOf((*frame.Row)(nil)),
	"Series":  reflect.ValueOf((*frame.Series)(nil)),
	"Table":   reflect.ValueOf((*frame.Table)(nil)),

	"KindBool":   reflect.ValueOf(frame.KindBool),
	"KindFloat":  reflect.ValueOf(frame.KindFloat),
	"KindInt":    reflect.ValueOf(frame.KindInt),
	"KindString": reflect.ValueOf(frame.KindString),
	"KindTime":   reflect.ValueOf(frame.KindTime),

	"Compare":     reflect.ValueOf(frame.Compare),
	"FormatValue": reflect.ValueOf(frame.FormatValue),
	"InferKind":   reflect.ValueOf(frame.InferKind),
	"New":         reflect.ValueOf(frame.New),
}

// exports builds the symbol table of one run: the whitelisted stdlib
// packages, the table package and the env package handing out df.
func exports(table func() *frame.Table) interp.Exports {
	ex := interp.Exports{}
	for key, symbols := range stdlib.Symbols {
		if _, ok := allowedPackages[path.Dir(key)]; ok {
			ex[key] = symbols
		}
	}
	ex[framePath+"/frame"] = frameSymbols
	ex[envPath+"/env"] = map[string]reflect.Value{
		"Table": reflect.ValueOf(table),
	}
	return ex
}
