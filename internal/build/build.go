package build

import "strings"

var (
	Version = "dev"
	AppName = "gwftool"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
