package geocode

import (
	"context"

	"go.uber.org/zap"
)

// Known-good self-test fixture: a Manhattan address whose 2010 tract is stable.
const (
	DefaultSelfTestAddress = "425 E 61 ST, New York, NY 10065 "
	DefaultSelfTestTract   = "010602"
)

// SelfTestOptions configures SelfTest. Zero values fall back to the defaults.
type SelfTestOptions struct {
	Address       string
	ExpectedTract string
	Logger        *zap.Logger
}

// SelfTest geocodes a known address and checks the returned tract code. Any
// failure, including a request error, is reported as *ConnectivityError.
func SelfTest(ctx context.Context, c Client, opts SelfTestOptions) error {
	if opts.Address == "" {
		opts.Address = DefaultSelfTestAddress
	}
	if opts.ExpectedTract == "" {
		opts.ExpectedTract = DefaultSelfTestTract
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	result, err := c.Geocode(ctx, opts.Address)
	if err != nil {
		log.Warn("there was an error when testing the US Census Bureau geocoder", zap.Error(err))
		return &ConnectivityError{Address: opts.Address, ExpectedTract: opts.ExpectedTract, Err: err}
	}

	var got string
	if result.Matched() {
		got = result.Match.TractCode
	}
	if got != opts.ExpectedTract {
		log.Warn("there was an error when testing the US Census Bureau geocoder",
			zap.String("want_tract", opts.ExpectedTract),
			zap.String("got_tract", got),
		)
		return &ConnectivityError{Address: opts.Address, ExpectedTract: opts.ExpectedTract, GotTract: got}
	}

	log.Info("census geocoder self-test passed",
		zap.String("tract", got),
		zap.String("fips", result.FIPS()),
	)
	return nil
}
