package flows

import (
	"context"

	"github.com/MrEthical07/tokenauth/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureDecode
)

// ValidateResult returns either the decoded token or a classified failure.
type ValidateResult struct {
	Failure  ValidateFailureKind
	Err      error
	Identity Identity
	Decoded  *jwt.Decoded
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Codec TokenCodec
}

// RunValidate decodes an access token with expiry enforced.
func RunValidate(_ context.Context, accessToken string, deps ValidateDeps) ValidateResult {
	decoded, err := deps.Codec.Decode(accessToken, true)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode, Err: err}
	}

	id := IdentityFromDecoded(decoded)
	id.Roles = decoded.Values(jwt.ClaimRole)
	return ValidateResult{
		Failure:  ValidateFailureNone,
		Identity: id,
		Decoded:  decoded,
	}
}
