package multicall

import (
	"errors"
	"reflect"
)

var errUnexpectedOutputShape = errors.New("multicall: unexpected tryAggregate output shape")

// decodeViaFallback handles the case where the go-ethereum abi decoder
// produces a slice of a dynamically generated struct type rather than the
// exact anonymous struct literal used in Aggregate (this varies slightly across
// go-ethereum versions). It walks the slice via reflection, reading the
// "Success" and "ReturnData" fields by name.
func decodeViaFallback(v any) ([]Result, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, errUnexpectedOutputShape
	}

	results := make([]Result, rv.Len())
	for i := range results {
		elem := rv.Index(i)
		successField := elem.FieldByName("Success")
		dataField := elem.FieldByName("ReturnData")
		if !successField.IsValid() || !dataField.IsValid() {
			return nil, errUnexpectedOutputShape
		}
		results[i] = Result{
			Success:    successField.Bool(),
			ReturnData: dataField.Bytes(),
		}
	}
	return results, nil
}
