package schema

// Tag numbers used by the envelope, the session layer and the built-in kinds.
const (
	TagBeginString             = 8
	TagBodyLength              = 9
	TagCheckSum                = 10
	TagClOrdID                 = 11
	TagSeqNum                  = 34
	TagMsgType                 = 35
	TagOrderID                 = 37
	TagOrderQty                = 38
	TagOrdStatus               = 39
	TagOrdType                 = 40
	TagOrigClOrdID             = 41
	TagPrice                   = 44
	TagSenderCompID            = 49
	TagSendingTime             = 52
	TagSide                    = 54
	TagSymbol                  = 55
	TagTargetCompID            = 56
	TagText                    = 58
	TagTransactTime            = 60
	TagEncryptMethod           = 98
	TagHeartBtInt              = 108
	TagTestReqID               = 112
	TagResetSeqNumFlag         = 141
	TagExecType                = 150
	TagSecurityReqID           = 320
	TagSecurityListRequestType = 559
	TagNoTickRules             = 1205
	TagStartTickPriceRange     = 1206
	TagEndTickPriceRange       = 1207
	TagTickIncrement           = 1208
)

// Message type codes.
const (
	MsgTypeHeartbeat           = "0"
	MsgTypeTestRequest         = "1"
	MsgTypeResendRequest       = "2"
	MsgTypeReject              = "3"
	MsgTypeLogout              = "5"
	MsgTypeExecutionReport     = "8"
	MsgTypeLogon               = "A"
	MsgTypeNewOrderSingle      = "D"
	MsgTypeOrderCancel         = "F"
	MsgTypeOrderCancelReplace  = "G"
	MsgTypeSecurityListRequest = "x"
	MsgTypeSecurityList        = "y"
)

var headerTags = map[int]struct{}{}

func init() {
	for _, t := range []int{
		8, 9, 35, 1128, 1129, 49, 56, 115, 1282, 90, 91, 34, 50,
		142, 57, 143, 116, 144, 1292, 1452, 43, 97, 52, 122, 212,
		213, 347, 369, 98, 108, 95, 96, 141, 789, 383, 464, 553,
		554, 1137,
	} {
		headerTags[t] = struct{}{}
	}
}

// IsHeaderTag reports whether tag belongs in the standard header block.
func IsHeaderTag(tag int) bool {
	_, ok := headerTags[tag]
	return ok
}

// HeaderRequired lists the header tags every header-bearing message needs.
func HeaderRequired() []int {
	return []int{TagBeginString, TagBodyLength, TagMsgType, TagSenderCompID, TagTargetCompID, TagSeqNum}
}
