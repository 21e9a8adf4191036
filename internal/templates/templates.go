// Package templates holds quicktemplate renderers. Run go generate after
// changing any .qtpl file.
package templates

//go:generate qtc -dir=.
