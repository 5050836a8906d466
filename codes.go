package ftp

// Reply codes from RFC 959 that the client acts on.
const (
	CodeServiceReadyLater     = 120 // Service ready in nnn minutes
	CodeDataConnAlreadyOpen   = 125 // transfer starting
	CodeFileStatusOkay        = 150 // about to open data connection
	CodeCommandOkay           = 200
	CodeFileStatus            = 213
	CodeServiceReady          = 220
	CodeClosingControlConn    = 221
	CodeClosingDataConn       = 226 // requested file action successful
	CodeEnteringPassiveMode   = 227
	CodeUserLoggedIn          = 230
	CodeFileActionOkay        = 250
	CodePathCreated           = 257
	CodeNeedPassword          = 331
	CodeNeedAccountForLogin   = 332
	CodeFileActionPending     = 350
	CodeServiceUnavailable    = 421 // closing control connection
	CodeCantOpenDataConn      = 425
	CodeConnectionClosed      = 426 // transfer aborted
	CodeFileActionNotTaken    = 450 // file busy
	CodeLocalError            = 451
	CodeInsufficientStorage   = 452
	CodeNotLoggedIn           = 530
	CodeNeedAccountForStoring = 532
	CodeFileUnavailable       = 550 // not found, no access
	CodePageTypeUnknown       = 551
	CodeStorageExceeded       = 552
	CodeFileNameNotAllowed    = 553
)

// ErrorKind classifies a negative reply. It implements error so that a
// *ReplyError can be matched with errors.Is.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindServiceUnavailable
	KindNotLoggedIn
	KindNeedAccount
	KindCantOpenDataConnection
	KindConnectionClosed
	KindFileActionNotTaken
	KindLocalError
	KindInsufficientStorage
	KindNeedAccountForStoring
	KindFileUnavailable
	KindPageTypeUnknown
	KindStorageExceeded
	KindFileNameNotAllowed
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                "unexpected reply",
	KindServiceUnavailable:     "service unavailable",
	KindNotLoggedIn:            "not logged in",
	KindNeedAccount:            "need account for login",
	KindCantOpenDataConnection: "can't open data connection",
	KindConnectionClosed:       "connection closed, transfer aborted",
	KindFileActionNotTaken:     "file action not taken",
	KindLocalError:             "local error in processing",
	KindInsufficientStorage:    "insufficient storage space",
	KindNeedAccountForStoring:  "need account for storing files",
	KindFileUnavailable:        "file unavailable",
	KindPageTypeUnknown:        "page type unknown",
	KindStorageExceeded:        "exceeded storage allocation",
	KindFileNameNotAllowed:     "file name not allowed",
}

// String returns the human readable name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error implements the error interface.
func (k ErrorKind) Error() string { return "ftp: " + k.String() }

// replyKinds maps reply codes to failure kinds. Codes not listed here but in
// the 4xx/5xx range classify as KindUnknown.
var replyKinds = map[int]ErrorKind{
	CodeServiceReadyLater:     KindServiceUnavailable,
	CodeServiceUnavailable:    KindServiceUnavailable,
	CodeNeedAccountForLogin:   KindNeedAccount,
	CodeCantOpenDataConn:      KindCantOpenDataConnection,
	CodeConnectionClosed:      KindConnectionClosed,
	CodeFileActionNotTaken:    KindFileActionNotTaken,
	CodeLocalError:            KindLocalError,
	CodeInsufficientStorage:   KindInsufficientStorage,
	CodeNotLoggedIn:           KindNotLoggedIn,
	CodeNeedAccountForStoring: KindNeedAccountForStoring,
	CodeFileUnavailable:       KindFileUnavailable,
	CodePageTypeUnknown:       KindPageTypeUnknown,
	CodeStorageExceeded:       KindStorageExceeded,
	CodeFileNameNotAllowed:    KindFileNameNotAllowed,
}

// KindOf returns the failure kind for a reply code.
func KindOf(code int) ErrorKind {
	return replyKinds[code]
}

// Classify turns a reply into an error. Preliminary, completion and
// intermediate replies (1xx-3xx) yield nil unless the code is listed as a
// failure (120 and 332); 4xx and 5xx replies always yield a *ReplyError.
func Classify(command string, reply *Reply) error {
	kind, listed := replyKinds[reply.Code]
	if !listed && reply.Code < 400 {
		return nil
	}
	return &ReplyError{
		Kind:    kind,
		Command: command,
		Code:    reply.Code,
		Message: reply.Text,
	}
}
