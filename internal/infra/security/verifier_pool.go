package security

import (
	"hash/fnv"

	"github.com/golang-jwt/jwt/v5"
)

// verifierPool holds a fixed set of parsers so concurrent verifications
// never contend on a shared verifier. Selection is stateless: the raw token
// hashes to a pool slot, no locks involved.
type verifierPool struct {
	parsers []*jwt.Parser
}

func newVerifierPool(size int, issuer string) *verifierPool {
	parsers := make([]*jwt.Parser, size)
	for i := range parsers {
		parsers[i] = jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		)
	}
	return &verifierPool{parsers: parsers}
}

func (p *verifierPool) pick(raw string) *jwt.Parser {
	h := fnv.New32a()
	_, _ = h.Write([]byte(raw))
	return p.parsers[int(h.Sum32())%len(p.parsers)]
}
