package expr

import "github.com/correlator-io/featurepipe/internal/piperr"

func columnNotFound(name string) *piperr.Error {
	return piperr.New(piperr.ColumnNotFound, "column not found: "+name)
}

func typeMismatch(msg string) *piperr.Error {
	return piperr.New(piperr.TypeMismatch, msg)
}
