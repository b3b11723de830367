package transcriber

import (
	"context"

	"github.com/rs/zerolog"
)

// ResolveDevice turns the requested device into the one the engine will be
// asked to use. auto and cuda become cuda only when probe reports an
// accelerator; otherwise the model runs on the CPU. A nil probe means no
// accelerator can be detected.
func ResolveDevice(ctx context.Context, requested Device, probe AcceleratorProbe, log zerolog.Logger) Device {
	if requested == DeviceCPU {
		return DeviceCPU
	}

	available := false
	if probe != nil {
		ok, err := probe.HasAccelerator(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("accelerator probe failed, assuming none")
		}
		available = ok && err == nil
	}

	if available {
		return DeviceCUDA
	}
	if requested == DeviceCUDA {
		log.Warn().Msg("cuda requested but no accelerator available, falling back to cpu")
	}
	return DeviceCPU
}
