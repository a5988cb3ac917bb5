package param

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies one parameter exposed by the device firmware.
//
// The zero value is the first declared kind; kinds are never created or
// destroyed at runtime. The declaration order below matches the firmware
// documentation and is load-bearing: it defines All() and the tie-break
// in Sorted().
type Kind int

// All device parameters, in declaration order.
const (
	AECFreezeOnOff Kind = iota
	AECNorm
	AECPathChange
	AECSilenceLevel
	AECSilenceMode
	AGCDesiredLevel
	AGCGain
	AGCMaxGain
	AGCOnOff
	AGCTime
	CNIOnOff
	DOAAngle
	EchoOnOff
	FreezeOnOff
	FSBPathChange
	FSBUpdated
	GammaVADSR
	GammaE
	GammaENL
	GammaETail
	GammaNN
	GammaNNSR
	GammaNS
	GammaNSSR
	HPFOnOff
	MinNN
	MinNNSR
	MinNS
	MinNSSR
	NLAECMode
	NLAttenOnOff
	NonStatNoiseOnOff
	NonStatNoiseOnOffSR
	RT60
	RT60OnOff
	SpeechDetected
	StatNoiseOnOff
	StatNoiseOnOffSR
	TransientOnOff
	VoiceActivity

	numKinds int = iota
)

// kindNames are the verbatim parameter names from the device firmware
// documentation. They are the canonical string form used by the CLI,
// the HTTP API and CSV column headers.
var kindNames = [numKinds]string{
	AECFreezeOnOff:      "AECFREEZEONOFF",
	AECNorm:             "AECNORM",
	AECPathChange:       "AECPATHCHANGE",
	AECSilenceLevel:     "AECSILENCELEVEL",
	AECSilenceMode:      "AECSILENCEMODE",
	AGCDesiredLevel:     "AGCDESIREDLEVEL",
	AGCGain:             "AGCGAIN",
	AGCMaxGain:          "AGCMAXGAIN",
	AGCOnOff:            "AGCONOFF",
	AGCTime:             "AGCTIME",
	CNIOnOff:            "CNIONOFF",
	DOAAngle:            "DOAANGLE",
	EchoOnOff:           "ECHOONOFF",
	FreezeOnOff:         "FREEZEONOFF",
	FSBPathChange:       "FSBPATHCHANGE",
	FSBUpdated:          "FSBUPDATED",
	GammaVADSR:          "GAMMAVAD_SR",
	GammaE:              "GAMMA_E",
	GammaENL:            "GAMMA_ENL",
	GammaETail:          "GAMMA_ETAIL",
	GammaNN:             "GAMMA_NN",
	GammaNNSR:           "GAMMA_NN_SR",
	GammaNS:             "GAMMA_NS",
	GammaNSSR:           "GAMMA_NS_SR",
	HPFOnOff:            "HPFONOFF",
	MinNN:               "MIN_NN",
	MinNNSR:             "MIN_NN_SR",
	MinNS:               "MIN_NS",
	MinNSSR:             "MIN_NS_SR",
	NLAECMode:           "NLAEC_MODE",
	NLAttenOnOff:        "NLATTENONOFF",
	NonStatNoiseOnOff:   "NONSTATNOISEONOFF",
	NonStatNoiseOnOffSR: "NONSTATNOISEONOFF_SR",
	RT60:                "RT60",
	RT60OnOff:           "RT60ONOFF",
	SpeechDetected:      "SPEECHDETECTED",
	StatNoiseOnOff:      "STATNOISEONOFF",
	StatNoiseOnOffSR:    "STATNOISEONOFF_SR",
	TransientOnOff:      "TRANSIENTONOFF",
	VoiceActivity:       "VOICEACTIVITY",
}

// String returns the firmware-verbatim parameter name.
func (k Kind) String() string {
	if k < 0 || int(k) >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k names a declared parameter.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < numKinds
}

// KindFromString resolves a firmware parameter name to its Kind.
// Matching is case-insensitive. Returns ErrUnknownKind for names that
// do not appear in the table.
func KindFromString(name string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == upper {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// All returns every Kind in declaration order.
// The returned slice is freshly allocated; callers may modify it.
func All() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Sorted returns every Kind in display and export order: read-write
// parameters before read-only, integer-typed before float-typed,
// declaration order breaking ties. The ordering is deterministic and
// stable across runs.
func Sorted() []Kind {
	kinds := All()
	sort.SliceStable(kinds, func(i, j int) bool {
		return sortKey(kinds[i]) < sortKey(kinds[j])
	})
	return kinds
}

// sortKey collapses the (access, type) pair into a single comparable rank.
func sortKey(k Kind) int {
	def := k.Definition()
	key := 0
	if def.Access == ReadOnly {
		key += 2
	}
	if def.Type == FloatRange {
		key++
	}
	return key
}
