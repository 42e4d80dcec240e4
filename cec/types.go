package cec

import "fmt"

// LogicalAddress represents a CEC logical address (0-15)
type LogicalAddress uint8

const (
	LogicalAddressTV               LogicalAddress = 0x0
	LogicalAddressRecordingDevice1 LogicalAddress = 0x1
	LogicalAddressRecordingDevice2 LogicalAddress = 0x2
	LogicalAddressTuner1           LogicalAddress = 0x3
	LogicalAddressPlaybackDevice1  LogicalAddress = 0x4
	LogicalAddressAudioSystem      LogicalAddress = 0x5
	LogicalAddressTuner2           LogicalAddress = 0x6
	LogicalAddressTuner3           LogicalAddress = 0x7
	LogicalAddressPlaybackDevice2  LogicalAddress = 0x8
	LogicalAddressRecordingDevice3 LogicalAddress = 0x9
	LogicalAddressTuner4           LogicalAddress = 0xA
	LogicalAddressPlaybackDevice3  LogicalAddress = 0xB
	LogicalAddressReserved1        LogicalAddress = 0xC
	LogicalAddressReserved2        LogicalAddress = 0xD
	LogicalAddressFreeUse          LogicalAddress = 0xE

	// 15 is overloaded: as a target it addresses every device on the
	// bus, as a source it marks a sender holding no address.
	LogicalAddressBroadcast    LogicalAddress = 0xF
	LogicalAddressUnregistered LogicalAddress = 0xF
)

func (l LogicalAddress) String() string {
	switch l {
	case LogicalAddressTV:
		return "TV"
	case LogicalAddressRecordingDevice1:
		return "Recording Device 1"
	case LogicalAddressRecordingDevice2:
		return "Recording Device 2"
	case LogicalAddressTuner1:
		return "Tuner 1"
	case LogicalAddressPlaybackDevice1:
		return "Playback Device 1"
	case LogicalAddressAudioSystem:
		return "Audio System"
	case LogicalAddressTuner2:
		return "Tuner 2"
	case LogicalAddressTuner3:
		return "Tuner 3"
	case LogicalAddressPlaybackDevice2:
		return "Playback Device 2"
	case LogicalAddressRecordingDevice3:
		return "Recording Device 3"
	case LogicalAddressTuner4:
		return "Tuner 4"
	case LogicalAddressPlaybackDevice3:
		return "Playback Device 3"
	case LogicalAddressBroadcast:
		return "Broadcast"
	default:
		return "Unknown"
	}
}

// DeviceType represents a CEC device type
type DeviceType uint8

const (
	DeviceTypeTV              DeviceType = 0
	DeviceTypeRecordingDevice DeviceType = 1
	DeviceTypeReserved        DeviceType = 2
	DeviceTypeTuner           DeviceType = 3
	DeviceTypePlaybackDevice  DeviceType = 4
	DeviceTypeAudioSystem     DeviceType = 5
)

func (d DeviceType) String() string {
	switch d {
	case DeviceTypeTV:
		return "TV"
	case DeviceTypeRecordingDevice:
		return "Recording Device"
	case DeviceTypeTuner:
		return "Tuner"
	case DeviceTypePlaybackDevice:
		return "Playback Device"
	case DeviceTypeAudioSystem:
		return "Audio System"
	default:
		return "Reserved"
	}
}

// ClientFlag returns the device-type letter cec-client expects for its
// -t flag.
func (d DeviceType) ClientFlag() string {
	switch d {
	case DeviceTypeTV:
		return "t"
	case DeviceTypeTuner:
		return "u"
	case DeviceTypePlaybackDevice:
		return "p"
	case DeviceTypeAudioSystem:
		return "a"
	default:
		return "r"
	}
}

// PowerStatus represents device power status
type PowerStatus uint8

const (
	PowerStatusOn                      PowerStatus = 0x00
	PowerStatusStandby                 PowerStatus = 0x01
	PowerStatusInTransitionStandbyToOn PowerStatus = 0x02
	PowerStatusInTransitionOnToStandby PowerStatus = 0x03
	PowerStatusUnknown                 PowerStatus = 0xFF
)

func (p PowerStatus) String() string {
	switch p {
	case PowerStatusOn:
		return "On"
	case PowerStatusStandby:
		return "Standby"
	case PowerStatusInTransitionStandbyToOn:
		return "Transitioning to On"
	case PowerStatusInTransitionOnToStandby:
		return "Transitioning to Standby"
	default:
		return "Unknown"
	}
}

// PhysicalAddress represents a 16-bit HDMI topology position, four
// nibbles dotted in display form (e.g. "1.0.0.0").
type PhysicalAddress uint16

func (p PhysicalAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", (p>>12)&0xF, (p>>8)&0xF, (p>>4)&0xF, p&0xF)
}

// Opcode represents a CEC opcode
type Opcode uint8

const (
	OpcodeActiveSource              Opcode = 0x82
	OpcodeImageViewOn               Opcode = 0x04
	OpcodeTextViewOn                Opcode = 0x0D
	OpcodeInactiveSource            Opcode = 0x9D
	OpcodeRequestActiveSource       Opcode = 0x85
	OpcodeRoutingChange             Opcode = 0x80
	OpcodeRoutingInformation        Opcode = 0x81
	OpcodeSetStreamPath             Opcode = 0x86
	OpcodeStandby                   Opcode = 0x36
	OpcodeRecordOff                 Opcode = 0x0B
	OpcodeRecordOn                  Opcode = 0x09
	OpcodeRecordStatus              Opcode = 0x0A
	OpcodeRecordTVScreen            Opcode = 0x0F
	OpcodeClearAnalogueTimer        Opcode = 0x33
	OpcodeClearDigitalTimer         Opcode = 0x99
	OpcodeClearExternalTimer        Opcode = 0xA1
	OpcodeSetAnalogueTimer          Opcode = 0x34
	OpcodeSetDigitalTimer           Opcode = 0x97
	OpcodeSetExternalTimer          Opcode = 0xA2
	OpcodeSetTimerProgramTitle      Opcode = 0x67
	OpcodeTimerClearedStatus        Opcode = 0x43
	OpcodeTimerStatus               Opcode = 0x35
	OpcodeCECVersion                Opcode = 0x9E
	OpcodeGetCECVersion             Opcode = 0x9F
	OpcodeGivePhysicalAddress       Opcode = 0x83
	OpcodeGetMenuLanguage           Opcode = 0x91
	OpcodeReportPhysicalAddress     Opcode = 0x84
	OpcodeSetMenuLanguage           Opcode = 0x32
	OpcodeDeckControl               Opcode = 0x42
	OpcodeDeckStatus                Opcode = 0x1B
	OpcodeGiveDeckStatus            Opcode = 0x1A
	OpcodePlay                      Opcode = 0x41
	OpcodeGiveTunerDeviceStatus     Opcode = 0x08
	OpcodeSelectAnalogueService     Opcode = 0x92
	OpcodeSelectDigitalService      Opcode = 0x93
	OpcodeTunerDeviceStatus         Opcode = 0x07
	OpcodeTunerStepDecrement        Opcode = 0x06
	OpcodeTunerStepIncrement        Opcode = 0x05
	OpcodeDeviceVendorID            Opcode = 0x87
	OpcodeGiveDeviceVendorID        Opcode = 0x8C
	OpcodeVendorCommand             Opcode = 0x89
	OpcodeVendorCommandWithID       Opcode = 0xA0
	OpcodeVendorRemoteButtonDown    Opcode = 0x8A
	OpcodeVendorRemoteButtonUp      Opcode = 0x8B
	OpcodeSetOSDString              Opcode = 0x64
	OpcodeGiveOSDName               Opcode = 0x46
	OpcodeSetOSDName                Opcode = 0x47
	OpcodeMenuRequest               Opcode = 0x8D
	OpcodeMenuStatus                Opcode = 0x8E
	OpcodeUserControlPressed        Opcode = 0x44
	OpcodeUserControlReleased       Opcode = 0x45
	OpcodeGiveDevicePowerStatus     Opcode = 0x8F
	OpcodeReportPowerStatus         Opcode = 0x90
	OpcodeFeatureAbort              Opcode = 0x00
	OpcodeAbort                     Opcode = 0xFF
	OpcodeGiveAudioStatus           Opcode = 0x71
	OpcodeGiveSystemAudioModeStatus Opcode = 0x7D
	OpcodeReportAudioStatus         Opcode = 0x7A
	OpcodeSetSystemAudioMode        Opcode = 0x72
	OpcodeSystemAudioModeRequest    Opcode = 0x70
	OpcodeSystemAudioModeStatus     Opcode = 0x7E
	OpcodeSetAudioRate              Opcode = 0x9A
)

// opcodeNames maps every recognized opcode to the symbolic name used as
// its event-channel key. Built once instead of scanning the constant set
// per decoded packet.
var opcodeNames = map[Opcode]string{
	OpcodeActiveSource:              "ACTIVE_SOURCE",
	OpcodeImageViewOn:               "IMAGE_VIEW_ON",
	OpcodeTextViewOn:                "TEXT_VIEW_ON",
	OpcodeInactiveSource:            "INACTIVE_SOURCE",
	OpcodeRequestActiveSource:       "REQUEST_ACTIVE_SOURCE",
	OpcodeRoutingChange:             "ROUTING_CHANGE",
	OpcodeRoutingInformation:        "ROUTING_INFORMATION",
	OpcodeSetStreamPath:             "SET_STREAM_PATH",
	OpcodeStandby:                   "STANDBY",
	OpcodeRecordOff:                 "RECORD_OFF",
	OpcodeRecordOn:                  "RECORD_ON",
	OpcodeRecordStatus:              "RECORD_STATUS",
	OpcodeRecordTVScreen:            "RECORD_TV_SCREEN",
	OpcodeClearAnalogueTimer:        "CLEAR_ANALOGUE_TIMER",
	OpcodeClearDigitalTimer:         "CLEAR_DIGITAL_TIMER",
	OpcodeClearExternalTimer:        "CLEAR_EXTERNAL_TIMER",
	OpcodeSetAnalogueTimer:          "SET_ANALOGUE_TIMER",
	OpcodeSetDigitalTimer:           "SET_DIGITAL_TIMER",
	OpcodeSetExternalTimer:          "SET_EXTERNAL_TIMER",
	OpcodeSetTimerProgramTitle:      "SET_TIMER_PROGRAM_TITLE",
	OpcodeTimerClearedStatus:        "TIMER_CLEARED_STATUS",
	OpcodeTimerStatus:               "TIMER_STATUS",
	OpcodeCECVersion:                "CEC_VERSION",
	OpcodeGetCECVersion:             "GET_CEC_VERSION",
	OpcodeGivePhysicalAddress:       "GIVE_PHYSICAL_ADDRESS",
	OpcodeGetMenuLanguage:           "GET_MENU_LANGUAGE",
	OpcodeReportPhysicalAddress:     "REPORT_PHYSICAL_ADDRESS",
	OpcodeSetMenuLanguage:           "SET_MENU_LANGUAGE",
	OpcodeDeckControl:               "DECK_CONTROL",
	OpcodeDeckStatus:                "DECK_STATUS",
	OpcodeGiveDeckStatus:            "GIVE_DECK_STATUS",
	OpcodePlay:                      "PLAY",
	OpcodeGiveTunerDeviceStatus:     "GIVE_TUNER_DEVICE_STATUS",
	OpcodeSelectAnalogueService:     "SELECT_ANALOGUE_SERVICE",
	OpcodeSelectDigitalService:      "SELECT_DIGITAL_SERVICE",
	OpcodeTunerDeviceStatus:         "TUNER_DEVICE_STATUS",
	OpcodeTunerStepDecrement:        "TUNER_STEP_DECREMENT",
	OpcodeTunerStepIncrement:        "TUNER_STEP_INCREMENT",
	OpcodeDeviceVendorID:            "DEVICE_VENDOR_ID",
	OpcodeGiveDeviceVendorID:        "GIVE_DEVICE_VENDOR_ID",
	OpcodeVendorCommand:             "VENDOR_COMMAND",
	OpcodeVendorCommandWithID:       "VENDOR_COMMAND_WITH_ID",
	OpcodeVendorRemoteButtonDown:    "VENDOR_REMOTE_BUTTON_DOWN",
	OpcodeVendorRemoteButtonUp:      "VENDOR_REMOTE_BUTTON_UP",
	OpcodeSetOSDString:              "SET_OSD_STRING",
	OpcodeGiveOSDName:               "GIVE_OSD_NAME",
	OpcodeSetOSDName:                "SET_OSD_NAME",
	OpcodeMenuRequest:               "MENU_REQUEST",
	OpcodeMenuStatus:                "MENU_STATUS",
	OpcodeUserControlPressed:        "USER_CONTROL_PRESSED",
	OpcodeUserControlReleased:       "USER_CONTROL_RELEASE",
	OpcodeGiveDevicePowerStatus:     "GIVE_DEVICE_POWER_STATUS",
	OpcodeReportPowerStatus:         "REPORT_POWER_STATUS",
	OpcodeFeatureAbort:              "FEATURE_ABORT",
	OpcodeAbort:                     "ABORT",
	OpcodeGiveAudioStatus:           "GIVE_AUDIO_STATUS",
	OpcodeGiveSystemAudioModeStatus: "GIVE_SYSTEM_AUDIO_MODE_STATUS",
	OpcodeReportAudioStatus:         "REPORT_AUDIO_STATUS",
	OpcodeSetSystemAudioMode:        "SET_SYSTEM_AUDIO_MODE",
	OpcodeSystemAudioModeRequest:    "SYSTEM_AUDIO_MODE_REQUEST",
	OpcodeSystemAudioModeStatus:     "SYSTEM_AUDIO_MODE_STATUS",
	OpcodeSetAudioRate:              "SET_AUDIO_RATE",
}

// Name returns the opcode's symbolic name and whether the opcode is
// recognized.
func (o Opcode) Name() (string, bool) {
	name, ok := opcodeNames[o]
	return name, ok
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(o))
}

// Keycode represents CEC user control codes
type Keycode uint8

const (
	KeycodeSelect             Keycode = 0x00
	KeycodeUp                 Keycode = 0x01
	KeycodeDown               Keycode = 0x02
	KeycodeLeft               Keycode = 0x03
	KeycodeRight              Keycode = 0x04
	KeycodeRootMenu           Keycode = 0x09
	KeycodeSetupMenu          Keycode = 0x0A
	KeycodeContentsMenu       Keycode = 0x0B
	KeycodeExit               Keycode = 0x0D
	Keycode0                  Keycode = 0x20
	Keycode1                  Keycode = 0x21
	Keycode2                  Keycode = 0x22
	Keycode3                  Keycode = 0x23
	Keycode4                  Keycode = 0x24
	Keycode5                  Keycode = 0x25
	Keycode6                  Keycode = 0x26
	Keycode7                  Keycode = 0x27
	Keycode8                  Keycode = 0x28
	Keycode9                  Keycode = 0x29
	KeycodeEnter              Keycode = 0x2B
	KeycodeChannelUp          Keycode = 0x30
	KeycodeChannelDown        Keycode = 0x31
	KeycodeDisplayInformation Keycode = 0x35
	KeycodePower              Keycode = 0x40
	KeycodeVolumeUp           Keycode = 0x41
	KeycodeVolumeDown         Keycode = 0x42
	KeycodeMute               Keycode = 0x43
	KeycodePlay               Keycode = 0x44
	KeycodeStop               Keycode = 0x45
	KeycodePause              Keycode = 0x46
	KeycodeRecord             Keycode = 0x47
	KeycodeRewind             Keycode = 0x48
	KeycodeFastForward        Keycode = 0x49
	KeycodeF1Blue             Keycode = 0x71
	KeycodeF2Red              Keycode = 0x72
	KeycodeF3Green            Keycode = 0x73
	KeycodeF4Yellow           Keycode = 0x74
)

// Device represents a CEC device with the properties the bridge can
// learn over the bus.
type Device struct {
	LogicalAddress  LogicalAddress
	PhysicalAddress PhysicalAddress
	PowerStatus     PowerStatus
	OSDName         string
}
