package data

// Selective decoding bits. A consumer ORs the bits of the fields it needs so that a
// compressed source can skip decoding the others. XY and the return fields are always
// decoded, hence the zero value.
const (
	DecompressChannelReturnsXY uint32 = 0x00000000
	DecompressZ                uint32 = 0x00000001
	DecompressClassification   uint32 = 0x00000002
	DecompressFlags            uint32 = 0x00000004
	DecompressIntensity        uint32 = 0x00000008
	DecompressScanAngle        uint32 = 0x00000010
	DecompressUserData         uint32 = 0x00000020
	DecompressPointSource      uint32 = 0x00000040
	DecompressGpsTime          uint32 = 0x00000080
	DecompressRGB              uint32 = 0x00000100
	DecompressNIR              uint32 = 0x00000200
	DecompressWavepacket       uint32 = 0x00000400
	DecompressByte0            uint32 = 0x00010000
	DecompressExtraBytes       uint32 = 0xFFFF0000
	DecompressAll              uint32 = 0xFFFFFFFF
)
