// Package simulate produces synthetic chemical process readings.
//
// Each row carries a timestamp and one value per Param. Values are drawn from
// a normal distribution around the parameter's mean; a small fraction are
// replaced by anomalies from a fixed out-of-band range so that dashboards and
// alert rules have something to react to.
//
// Output is a CSV file in the layout the server's record loader reads:
//
//	timestamp,Temperature,Pressure,Flow_Rate,pH_Value,Concentration
//	2024-01-01T00:00:00.000Z,151.204,4.871,98.310,7.102,0.148
package simulate
