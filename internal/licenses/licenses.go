// Package licenses embeds the envgen license and the notices of its
// third-party dependencies for `envgen license`.
package licenses

import (
	_ "embed"
	"strings"
)

//go:generate sh -c "go run github.com/google/go-licenses@v1.6.0 report ../../cmd/envgen --ignore github.com/pthm/envgen --template assets/notices.tpl > assets/THIRD_PARTY_NOTICES"

//go:embed assets/LICENSE
var licenseText string

//go:embed assets/THIRD_PARTY_NOTICES
var thirdPartyText string

func LicenseText() string {
	return strings.TrimRight(licenseText, "\n")
}

func ThirdPartyText() string {
	return strings.TrimRight(thirdPartyText, "\n")
}
