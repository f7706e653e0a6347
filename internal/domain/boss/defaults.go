package boss

// DefaultTable returns the spawn table the community bot has always used.
func DefaultTable() []Definition {
	return []Definition{
		{Name: "그루트킹", Rule: FixedMinute{Minute: 0}},
		{Name: "해적 선장", Rule: FixedMinute{Minute: 30}},
		{Name: "아절 브루트", Rule: ParityMinute{Parity: ParityOdd, Minute: 10}},
		{Name: "위더", Rule: ParityMinute{Parity: ParityEven, Minute: 10}},
		{Name: "쿵푸", Rule: ParityMinute{Parity: ParityOdd, Minute: 40}},
		{Name: "에이트", Rule: ParityMinute{Parity: ParityEven, Minute: 40}},
		{Name: "세르칸", Rule: ParityMinute{Parity: ParityOdd, Minute: 50}},
	}
}
