package value

const (
	memValueHead  int64 = 16
	memWideHead   int64 = 32
	memStringHead int64 = 24
	memThreadHead int64 = 64
	memFrameSlot  int64 = 16
)

func CostStringBytes(n int) int64 {
	if n < 0 {
		return memStringHead
	}
	return memStringHead + int64(n)
}

func (v Value) Cost() int64 {
	switch {
	case v.kind == KindString:
		return memValueHead + CostStringBytes(len(v.str))
	case v.kind.IsWide():
		return memValueHead + memWideHead
	}
	return memValueHead
}

func CostThread(frameLen int) int64 {
	if frameLen < 0 {
		return memThreadHead
	}
	return memThreadHead + int64(frameLen)*memFrameSlot
}
