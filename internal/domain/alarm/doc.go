// Package alarm contains the arm state model of a station.
//
// It defines State (Disarmed, Armed, ArmedStandalone) and Mode, the pair of
// flags a station tracks (hub-confirmed arm and local standalone) together
// with the rule that keeps them mutually exclusive.
package alarm
