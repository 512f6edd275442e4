package generators

import (
	"math/rand"
	"strings"

	"github.com/go-faker/faker/v4"
)

// SeedNames routes faker's draws through src so PersonalName output is
// reproducible from a document seed. Faker's source is process-global;
// callers that interleave independently seeded generators must re-seed
// before each generation pass.
func SeedNames(src rand.Source) {
	faker.SetRandomSource(src)
}

// PersonalName produces an uppercased human name fitted to width: truncated
// when longer, right-padded with spaces when shorter.
func PersonalName(width int) string {
	name := strings.ToUpper(faker.Name())
	if len(name) > width {
		name = name[:width]
	}
	return name + strings.Repeat(" ", width-len(name))
}
