// Package config loads the hedger YAML configuration.
//
// Values of the form ${VAR} are expanded from the environment before parsing,
// so secrets such as the database password or the fiscal API client secret can
// stay out of the file. LoadAndValidate applies defaults for every optional
// field and rejects configurations the engine cannot run with.
package config
