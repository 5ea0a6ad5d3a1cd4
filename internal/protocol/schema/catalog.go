package schema

import (
	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

var limitOrderPrice = MustCompileCondition(
	`Tag(40) != "2" || Has(44)`,
	"Limit order (40=2) must have price tag (44)",
)

// Built-in kinds.
var (
	Logon = Kind{
		Name:     "logon",
		MsgType:  MsgTypeLogon,
		Defaults: []tagvalue.Field{tagvalue.F(TagResetSeqNumFlag, "Y")},
	}
	Logout = Kind{
		Name:     "logout",
		MsgType:  MsgTypeLogout,
		Defaults: []tagvalue.Field{tagvalue.F(TagResetSeqNumFlag, "Y")},
	}
	Heartbeat = Kind{
		Name:    "heartbeat",
		MsgType: MsgTypeHeartbeat,
	}
	TestRequest = Kind{
		Name:    "test-request",
		MsgType: MsgTypeTestRequest,
	}
	NewOrderSingle = Kind{
		Name:       "new-order",
		MsgType:    MsgTypeNewOrderSingle,
		Required:   []int{TagClOrdID, TagSide, TagTransactTime, TagOrdType, TagOrderQty},
		Conditions: []group.Condition{limitOrderPrice},
	}
	OrderCancelReplace = Kind{
		Name:       "amend-order",
		MsgType:    MsgTypeOrderCancelReplace,
		Required:   []int{TagClOrdID, TagOrigClOrdID, TagSide, TagTransactTime, TagOrdType, TagOrderQty},
		Conditions: []group.Condition{limitOrderPrice},
	}
	OrderCancel = Kind{
		Name:     "cancel-order",
		MsgType:  MsgTypeOrderCancel,
		Required: []int{TagClOrdID, TagOrigClOrdID, TagSide, TagSymbol, TagTransactTime},
	}
	ExecutionReport = Kind{
		Name:     "execution-report",
		MsgType:  MsgTypeExecutionReport,
		Required: []int{TagClOrdID, TagSide, TagTransactTime, TagOrdType, TagOrderQty, TagOrdStatus, TagExecType},
	}
	SecurityListRequest = Kind{
		Name:     "security-list-request",
		MsgType:  MsgTypeSecurityListRequest,
		Required: []int{TagSecurityReqID, TagSecurityListRequestType},
	}
	SecurityList = Kind{
		Name:      "security-list",
		MsgType:   MsgTypeSecurityList,
		Structure: SecurityListStructure(),
	}
)

// Builtins returns the built-in kinds in catalog order.
func Builtins() []Kind {
	return []Kind{
		Logon, Logout, Heartbeat, TestRequest,
		NewOrderSingle, OrderCancelReplace, OrderCancel,
		ExecutionReport, SecurityListRequest, SecurityList,
	}
}

// SecurityListStructure is the related-symbol layout of a security list:
// one group per symbol, each optionally carrying tick rules.
func SecurityListStructure() *group.Schema {
	tickRules := group.NewSchema(TagStartTickPriceRange, TagEndTickPriceRange, TagTickIncrement)
	symbol := group.NewSchema(
		TagSymbol, 48, 107, 561, 167, 22, 207, 541, 200, 202, 201,
		711, 311, 454, 455, 456, 231, 423, 562, 461,
		30025, 30024, 30034, 30026, TagNoTickRules,
	).Nest(TagStartTickPriceRange, tickRules)
	return group.NewSchema().Nest(TagSymbol, symbol)
}
