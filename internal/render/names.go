package render

var tagNames = map[int]string{
	8:    "BeginString",
	9:    "BodyLength",
	10:   "CheckSum",
	11:   "ClOrdID",
	34:   "MsgSeqNum",
	35:   "MsgType",
	37:   "OrderID",
	38:   "OrderQty",
	39:   "OrdStatus",
	40:   "OrdType",
	41:   "OrigClOrdID",
	44:   "Price",
	48:   "SecurityID",
	49:   "SenderCompID",
	52:   "SendingTime",
	54:   "Side",
	55:   "Symbol",
	56:   "TargetCompID",
	58:   "Text",
	59:   "TimeInForce",
	60:   "TransactTime",
	98:   "EncryptMethod",
	108:  "HeartBtInt",
	112:  "TestReqID",
	141:  "ResetSeqNumFlag",
	150:  "ExecType",
	320:  "SecurityReqID",
	559:  "SecurityListRequestType",
	1205: "NoTickRules",
	1206: "StartTickPriceRange",
	1207: "EndTickPriceRange",
	1208: "TickIncrement",
}

// TagName returns the dictionary name of tag when known.
func TagName(tag int) (string, bool) {
	name, ok := tagNames[tag]
	return name, ok
}
