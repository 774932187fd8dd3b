package config

// Source is the layer a runtime value was resolved from.
type Source string

// Sources, lowest priority first.
const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)
