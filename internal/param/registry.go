package param

import "fmt"

// Access describes whether a parameter accepts writes.
type Access int

const (
	// ReadWrite parameters are tunables the host may change.
	ReadWrite Access = iota
	// ReadOnly parameters are telemetry reported by the device.
	ReadOnly
)

// String returns the short access label used in tables and exports.
func (a Access) String() string {
	if a == ReadOnly {
		return "ro"
	}
	return "rw"
}

// ValueType describes the value domain of a parameter.
type ValueType int

const (
	// IntDiscrete is a small integer enumeration. Each value in
	// 0..len(ChoiceLabels)-1 has a human-readable label.
	IntDiscrete ValueType = iota
	// IntRange is an integer in [Min, Max] without per-value labels.
	IntRange
	// FloatRange is a 32-bit float in [Min, Max].
	FloatRange
)

// IsInt reports whether the type carries integer values on the wire.
func (t ValueType) IsInt() bool {
	return t != FloatRange
}

// String returns the short type label used in tables and exports.
func (t ValueType) String() string {
	if t == FloatRange {
		return "float"
	}
	return "int"
}

// Definition describes how one Kind maps to the device and what values
// it accepts. DeviceID selects the functional block (page) on the DSP;
// Command is the sub-address inside that page.
//
// For integer parameters Min and Max hold whole numbers; for IntDiscrete
// they are implicitly 0 and len(ChoiceLabels)-1.
type Definition struct {
	DeviceID     uint16
	Command      uint16
	Access       Access
	Type         ValueType
	Min          float64
	Max          float64
	Description  string
	ChoiceLabels []string
}

// Definition returns the definition of k. The lookup is pure and O(1);
// calling it with an undeclared Kind panics, which is a programming error,
// not a runtime condition.
func (k Kind) Definition() Definition {
	return definitions[k]
}

// intDiscrete builds an IntDiscrete definition. The range is implied by
// the labels: 0..len(labels)-1.
func intDiscrete(id, cmd uint16, access Access, description string, labels ...string) Definition {
	return Definition{
		DeviceID:     id,
		Command:      cmd,
		Access:       access,
		Type:         IntDiscrete,
		Min:          0,
		Max:          float64(len(labels) - 1),
		Description:  description,
		ChoiceLabels: labels,
	}
}

// intRange builds an IntRange definition.
func intRange(id, cmd uint16, min, max int32, access Access, description string, labels ...string) Definition {
	return Definition{
		DeviceID:     id,
		Command:      cmd,
		Access:       access,
		Type:         IntRange,
		Min:          float64(min),
		Max:          float64(max),
		Description:  description,
		ChoiceLabels: labels,
	}
}

// floatRange builds a FloatRange definition.
func floatRange(id, cmd uint16, min, max float32, access Access, description string) Definition {
	return Definition{
		DeviceID:    id,
		Command:     cmd,
		Access:      access,
		Type:        FloatRange,
		Min:         float64(min),
		Max:         float64(max),
		Description: description,
	}
}

// definitions is the device parameter table, transcribed from the XMOS
// XVF-3000 firmware documentation. Addresses, ranges and descriptions are
// firmware facts; do not edit without the datasheet open.
var definitions = [numKinds]Definition{
	AECFreezeOnOff:      intDiscrete(18, 7, ReadWrite, "Adaptive Echo Canceler updates inhibit.", "0 = Adaptation enabled", "1 = Freeze adaptation, filter only"),
	AECNorm:             floatRange(18, 19, 0.25, 16, ReadWrite, "Limit on norm of AEC filter coefficients"),
	AECPathChange:       intDiscrete(18, 25, ReadOnly, "AEC Path Change Detection.", "0 = false (no path change detected)", "1 = true (path change detected)"),
	AECSilenceLevel:     floatRange(18, 30, 1e-09, 1, ReadWrite, "Threshold for signal detection in AEC [-inf .. 0] dBov (Default: -80dBov = 10log10(1x10-8))"),
	AECSilenceMode:      intDiscrete(18, 31, ReadOnly, "AEC far-end silence detection status.", "0 = false (signal detected)", "1 = true (silence detected)"),
	AGCDesiredLevel:     floatRange(19, 2, 1e-08, 0.99, ReadWrite, "Target power level of the output signal. [-inf .. 0] dBov (default: -23dBov = 10log10(0.005))"),
	AGCGain:             floatRange(19, 3, 1, 1000, ReadWrite, "Current AGC gain factor. [0 .. 60] dB (default: 0.0dB = 20log10(1.0))"),
	AGCMaxGain:          floatRange(19, 1, 1, 1000, ReadWrite, "Maximum AGC gain factor. [0 .. 60] dB (default 30dB = 20log10(31.6))"),
	AGCOnOff:            intDiscrete(19, 0, ReadWrite, "Automatic Gain Control.", "0 = OFF", "1 = ON"),
	AGCTime:             floatRange(19, 4, 0.1, 1, ReadWrite, "Ramps-up / down time-constant in seconds."),
	CNIOnOff:            intDiscrete(19, 5, ReadWrite, "Comfort Noise Insertion.", "0 = OFF", "1 = ON"),
	DOAAngle:            intRange(21, 0, 0, 359, ReadOnly, "DOA angle. Current value. Orientation depends on build configuration.", "[0 .. 359] Angle"),
	EchoOnOff:           intDiscrete(19, 14, ReadWrite, "Echo suppression.", "0 = OFF", "1 = ON"),
	FreezeOnOff:         intDiscrete(19, 6, ReadWrite, "Adaptive beamformer updates.", "0 = Adaptation enabled", "1 = Freeze adaptation, filter only"),
	FSBPathChange:       intDiscrete(19, 24, ReadOnly, "FSB Path Change Detection.", "0 = false (no path change detected)", "1 = true (path change detected)"),
	FSBUpdated:          intDiscrete(19, 23, ReadOnly, "FSB Update Decision.", "0 = false (FSB was not updated)", "1 = true (FSB was updated)"),
	GammaVADSR:          floatRange(19, 39, 0, 1000, ReadWrite, "Set the threshold for voice activity detection. [-inf .. 60] dB (default: 3.5dB 20log10(1.5))"),
	GammaE:              floatRange(19, 15, 0, 3, ReadWrite, "Over-subtraction factor of echo (direct and early components). min .. max attenuation"),
	GammaENL:            floatRange(19, 17, 0, 5, ReadWrite, "Over-subtraction factor of non-linear echo. min .. max attenuation"),
	GammaETail:          floatRange(19, 16, 0, 3, ReadWrite, "Over-subtraction factor of echo (tail components). min .. max attenuation"),
	GammaNN:             floatRange(19, 12, 0, 3, ReadWrite, "Over-subtraction factor of non-stationary noise. min .. max attenuation"),
	GammaNNSR:           floatRange(19, 36, 0, 3, ReadWrite, "Over-subtraction factor of non-stationary noise for ASR. [0.0 .. 3.0] (default: 1.1)"),
	GammaNS:             floatRange(19, 9, 0, 3, ReadWrite, "Over-subtraction factor of stationary noise. min .. max attenuation"),
	GammaNSSR:           floatRange(19, 35, 0, 3, ReadWrite, "Over-subtraction factor of stationary noise for ASR. [0.0 .. 3.0] (default: 1.0)"),
	HPFOnOff:            intDiscrete(18, 27, ReadWrite, "High-pass Filter on microphone signals.", "0 = OFF", "1 = ON - 70 Hz cut-off", "2 = ON - 125 Hz cut-off", "3 = ON - 180 Hz cut-off"),
	MinNN:               floatRange(19, 13, 0, 1, ReadWrite, "Gain-floor for non-stationary noise suppression. [-inf .. 0] dB (default: -10dB = 20log10(0.3))"),
	MinNNSR:             floatRange(19, 38, 0, 1, ReadWrite, "Gain-floor for non-stationary noise suppression for ASR. [-inf .. 0] dB (default: -10dB = 20log10(0.3))"),
	MinNS:               floatRange(19, 10, 0, 1, ReadWrite, "Gain-floor for stationary noise suppression. [-inf .. 0] dB (default: -16dB = 20log10(0.15))"),
	MinNSSR:             floatRange(19, 37, 0, 1, ReadWrite, "Gain-floor for stationary noise suppression for ASR. [-inf .. 0] dB (default: -16dB = 20log10(0.15))"),
	NLAECMode:           intDiscrete(19, 20, ReadWrite, "Non-Linear AEC training mode.", "0 = OFF", "1 = ON - phase 1", "2 = ON - phase 2"),
	NLAttenOnOff:        intDiscrete(19, 18, ReadWrite, "Non-Linear echo attenuation.", "0 = OFF", "1 = ON"),
	NonStatNoiseOnOff:   intDiscrete(19, 11, ReadWrite, "Non-stationary noise suppression.", "0 = OFF", "1 = ON"),
	NonStatNoiseOnOffSR: intDiscrete(19, 34, ReadWrite, "Non-stationary noise suppression for ASR.", "0 = OFF", "1 = ON"),
	RT60:                floatRange(18, 26, 0.25, 0.9, ReadOnly, "Current RT60 estimate in seconds"),
	RT60OnOff:           intDiscrete(18, 28, ReadWrite, "RT60 Estimation for AES.", "0 = OFF", "1 = ON"),
	SpeechDetected:      intDiscrete(19, 22, ReadOnly, "Speech detection status.", "0 = false (no speech detected)", "1 = true (speech detected)"),
	StatNoiseOnOff:      intDiscrete(19, 8, ReadWrite, "Stationary noise suppression.", "0 = OFF", "1 = ON"),
	StatNoiseOnOffSR:    intDiscrete(19, 33, ReadWrite, "Stationary noise suppression for ASR.", "0 = OFF", "1 = ON"),
	TransientOnOff:      intDiscrete(19, 29, ReadWrite, "Transient echo suppression.", "0 = OFF", "1 = ON"),
	VoiceActivity:       intDiscrete(19, 32, ReadOnly, "VAD voice activity status.", "0 = false (no voice activity)", "1 = true (voice activity)"),
}

// Validate checks registry invariants that the rest of the system relies
// on. It is called once at startup (and from tests); a failure means the
// table itself is wrong.
//
// Checked invariants:
//   - every Kind has a non-empty name and description
//   - Min <= Max for every definition
//   - IntDiscrete definitions carry at least one choice label
//   - no two kinds share a (DeviceID, Command) address
func Validate() error {
	seen := make(map[uint32]Kind, numKinds)
	for _, k := range All() {
		def := k.Definition()
		if kindNames[k] == "" {
			return fmt.Errorf("%w: kind %d has no name", ErrBadTable, int(k))
		}
		if def.Description == "" {
			return fmt.Errorf("%w: %s has no description", ErrBadTable, k)
		}
		if def.Min > def.Max {
			return fmt.Errorf("%w: %s has min %v > max %v", ErrBadTable, k, def.Min, def.Max)
		}
		if def.Type == IntDiscrete && len(def.ChoiceLabels) == 0 {
			return fmt.Errorf("%w: %s is discrete but has no choice labels", ErrBadTable, k)
		}
		addr := uint32(def.DeviceID)<<16 | uint32(def.Command)
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("%w: %s and %s share address %d/%d", ErrBadTable, prev, k, def.DeviceID, def.Command)
		}
		seen[addr] = k
	}
	return nil
}
