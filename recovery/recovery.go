package recovery

// Strategy decides how the parser reacts to a localized failure.
type Strategy interface {
	OnError(err error, location Location) Action
}

type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionWarn
)

type skipAll struct{}

func (skipAll) OnError(error, Location) Action { return ActionSkip }

// SkipBroken returns a strategy that drops unparseable objects instead
// of failing the whole load.
func SkipBroken() Strategy { return skipAll{} }
