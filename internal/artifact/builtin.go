package artifact

import "fmt"

// Builtin returns the producer registered under a configuration name.
func Builtin(name string) (Producer, error) {
	switch name {
	case "photon":
		return PhotonProducer{}, nil
	case "fpga":
		return FPGAProducer{}, nil
	case "npz":
		return NPZProducer{}, nil
	case "gagescope":
		return GagescopeProducer{}, nil
	default:
		return nil, fmt.Errorf("unknown producer %q", name)
	}
}
