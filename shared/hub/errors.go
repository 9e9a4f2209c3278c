package hub

import "errors"

var (
	ErrMissingFid        = errors.New("missing author fid")
	ErrMissingSigner     = errors.New("missing signer key")
	ErrInvalidParentHash = errors.New("invalid parent cast hash")
	ErrInvalidParams     = errors.New("invalid cast parameters")
	ErrHashMismatch      = errors.New("message hash does not match data")
	ErrBadSignature      = errors.New("invalid message signature")
)
