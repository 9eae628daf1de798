package valuation

import "errors"

var ErrInvalidInput = errors.New("error negative quantity or price")
