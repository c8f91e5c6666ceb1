package mocks

import "github.com/stretchr/testify/mock"

type Commander struct {
	mock.Mock
}

func (_m *Commander) SetPower(on bool, colorChannel bool) {
	_m.Called(on, colorChannel)
}
func (_m *Commander) SetBrightness(level int, colorChannel bool) {
	_m.Called(level, colorChannel)
}
func (_m *Commander) SetColorTemperature(value int, colorChannel bool) {
	_m.Called(value, colorChannel)
}
func (_m *Commander) SetHueSaturation(hue int, saturation int) {
	_m.Called(hue, saturation)
}
