package model

// ApplicationInfo describes running build.
type ApplicationInfo struct {
	Revision    string
	Branch      string
	Environment string
}
