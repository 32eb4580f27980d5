// Package model defines shared data types used across the Treasury basis hedger.
package model
