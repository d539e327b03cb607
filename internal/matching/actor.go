package matching

import (
	"github.com/google/uuid"

	"hftengine/internal/book"
	"hftengine/pkg/types"
)

// command is sent to a symbolActor's mailbox. Exactly one of submit,
// cancelID, or the snapshot request is meaningful, selected by kind.
type commandKind int

const (
	cmdSubmit commandKind = iota
	cmdCancel
	cmdSnapshot
)

type command struct {
	kind     commandKind
	submit   *types.Order
	cancelID uuid.UUID
	result   chan actorResult
}

type actorResult struct {
	exec     types.ExecutionResult
	canceled bool
	bids     []book.DepthLevel
	asks     []book.DepthLevel
}

// symbolActor owns one symbol's OrderBook and pending stop orders. All
// mutation happens on its single goroutine, so nothing inside it needs a
// mutex; this is the per-symbol serialization point described in §5.
type symbolActor struct {
	book   *book.OrderBook
	stops  stopList
	inbox  chan command
	trades chan types.Trade
	halted bool
}

func newSymbolActor(symbol string, trades chan types.Trade) *symbolActor {
	return &symbolActor{
		book:   book.New(symbol),
		inbox:  make(chan command, 256),
		trades: trades,
	}
}

func (a *symbolActor) run() {
	for cmd := range a.inbox {
		switch cmd.kind {
		case cmdCancel:
			_, ok := a.book.Cancel(cmd.cancelID)
			cmd.result <- actorResult{canceled: ok}
		case cmdSnapshot:
			bids, asks := a.book.Snapshot()
			cmd.result <- actorResult{bids: bids, asks: asks}
		default:
			cmd.result <- actorResult{exec: a.submit(cmd.submit)}
		}
	}
}

func (a *symbolActor) submit(o *types.Order) types.ExecutionResult {
	if a.halted {
		return types.ExecutionResult{Status: types.Rejected, RemainingQuantity: o.Quantity, Reason: "symbol halted after invariant violation"}
	}
	if reason, ok := validateOrder(o); !ok {
		return types.ExecutionResult{Status: types.Rejected, RemainingQuantity: o.Quantity, Reason: reason}
	}

	if o.IsStop() {
		a.stops.add(o)
		return types.ExecutionResult{Status: o.Status, RemainingQuantity: o.Remaining()}
	}

	var trades []types.Trade
	a.execute(o, &trades)
	a.emit(trades)

	return types.ExecutionResult{
		Status:            o.Status,
		Fills:             trades,
		RemainingQuantity: o.Remaining(),
	}
}

// execute runs the crossing algorithm for a single order, rests or cancels
// the residual, and then checks whether any pending stop orders activate as
// a result of the new touch prices, recursively executing any that fire.
func (a *symbolActor) execute(o *types.Order, trades *[]types.Trade) {
	match(a.book, o, trades)

	if o.Remaining().IsPositive() {
		switch o.Kind {
		case types.Limit:
			a.book.Add(o)
		default: // Market and triggered-stop-turned-Market residuals never rest
			o.Status = types.Canceled
		}
	}

	for _, fired := range a.stops.triggered(a.book) {
		a.execute(fired, trades)
	}
}

// validateOrder applies the validation rejections every order must clear
// before any book mutation: positive quantity, and a positive price for
// kinds whose price actually crosses or triggers (Limit's Price, the stop
// kinds' StopPrice). Market orders carry no price to validate.
func validateOrder(o *types.Order) (reason string, ok bool) {
	if !o.Quantity.IsPositive() {
		return "quantity must be positive", false
	}
	switch o.Kind {
	case types.Limit:
		if !o.Price.IsPositive() {
			return "price must be positive", false
		}
	case types.StopLoss, types.TakeProfit:
		if !o.StopPrice.IsPositive() {
			return "stop price must be positive", false
		}
	}
	return "", true
}

func (a *symbolActor) emit(trades []types.Trade) {
	for _, t := range trades {
		select {
		case a.trades <- t:
		default:
			// Outbound channel full: drop the oldest pending trade to make
			// room rather than block matching, mirroring the
			// drain-then-resend pattern used for kill-switch signals.
			select {
			case <-a.trades:
			default:
			}
			a.trades <- t
		}
	}
}
