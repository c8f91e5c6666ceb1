package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dokzlo13/duolight/internal/reconcile"
)

type Driver struct {
	mock.Mock
}

func (_m *Driver) Name() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}
func (_m *Driver) Power(ctx context.Context, ch reconcile.Channel, on bool) error {
	ret := _m.Called(ctx, ch, on)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, reconcile.Channel, bool) error); ok {
		r0 = rf(ctx, ch, on)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
func (_m *Driver) Brightness(ctx context.Context, ch reconcile.Channel, level int) error {
	ret := _m.Called(ctx, ch, level)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, reconcile.Channel, int) error); ok {
		r0 = rf(ctx, ch, level)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
func (_m *Driver) ColorTemperature(ctx context.Context, ch reconcile.Channel, kelvin int) error {
	ret := _m.Called(ctx, ch, kelvin)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, reconcile.Channel, int) error); ok {
		r0 = rf(ctx, ch, kelvin)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
func (_m *Driver) HueSaturation(ctx context.Context, hue int, saturation int) error {
	ret := _m.Called(ctx, hue, saturation)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, int, int) error); ok {
		r0 = rf(ctx, hue, saturation)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
func (_m *Driver) Close() error {
	ret := _m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
