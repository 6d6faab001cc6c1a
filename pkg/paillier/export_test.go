package paillier

import (
	"reflect"

	"github.com/cronokirby/saferith"
)

// NatState is the limb slice header and contents of a saferith value.
type NatState struct {
	Data     uintptr
	Len, Cap int
	Words    []uint64
}

func natState(x *saferith.Nat) NatState {
	limbs := reflect.ValueOf(x).Elem().FieldByName("limbs")
	s := NatState{Data: limbs.Pointer(), Len: limbs.Len(), Cap: limbs.Cap()}
	for i := 0; i < limbs.Len(); i++ {
		s.Words = append(s.Words, limbs.Index(i).Uint())
	}
	return s
}

// MirrorStates snapshots every constant-time value shared by callers of sk
// and its public key.
func MirrorStates(sk *PrivateKey) map[string]NatState {
	return map[string]NatState{
		"n":    natState(sk.pub.nNat),
		"p":    natState(sk.pNat),
		"p-1":  natState(sk.pMinusOneNat),
		"q-1":  natState(sk.qMinusOneNat),
		"hP":   natState(sk.hPNat),
		"hQ":   natState(sk.hQNat),
		"pInv": natState(sk.pInvNat),
		"dP":   natState(sk.dPNat),
		"dQ":   natState(sk.dQNat),
		"phi":  natState(sk.phiNat),
		"mu":   natState(sk.muNat),
	}
}
