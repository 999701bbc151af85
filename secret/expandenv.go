package secret

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// ErrMissingEnv indicates a ${NAME} reference to an unset variable.
var ErrMissingEnv = errors.New("secret: missing environment variables")

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands $NAME and ${NAME} in s. Every ${NAME} must be
// set; a bare $NAME that is unset expands to "". "$$" yields a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	const escaped = "\x00fanadmin-dollar\x00"
	s = strings.ReplaceAll(s, "$$", escaped)

	var missing []string
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), escaped, "$"), nil
}
