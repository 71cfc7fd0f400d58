package temperature

// ToFahrenheit converts degrees Celsius to degrees Fahrenheit. No rounding is applied.
func ToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// ToCelsius converts degrees Fahrenheit to degrees Celsius. No rounding is applied.
func ToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
