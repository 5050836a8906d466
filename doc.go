// Package ftp implements a passive-mode FTP client engine.
//
// # Overview
//
// The package is organised in three layers:
//   - A reply codec (ReadReply) that frames single-line and multi-line
//     RFC 959 replies.
//   - A control channel (ControlConn) that sends commands, matches each to
//     its own reply and survives server-side disconnects.
//   - A data channel (DataConn) negotiated with PASV that carries exactly
//     one transfer.
//
// Client ties the layers together into the usual file operations.
//
// # Basic Usage
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("username", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
//	data, err := client.Retrieve("/pub/README", nil)
//
// Or with a URL, logging in as anonymous when no user is given:
//
//	client, err := ftp.Connect("ftp://ftp.example.com/pub")
//
// # Reconnecting
//
// Servers close idle control connections, usually after sending an
// unsolicited "421" reply. Before writing a command the control channel
// checks for such pending replies. A pending 421, or a connection that was
// closed underneath it, makes the channel reconnect and log in again with the
// remembered Session before sending the command. Other unsolicited replies
// are read and discarded so that every command receives its own reply.
//
// Reconnection only happens after a login has succeeded once, and at most
// WithMaxReconnects times per command (3 by default). When the limit is
// reached the command fails with ErrReconnectLimit.
//
// # Error Handling
//
// Negative replies are returned as *ReplyError values carrying an ErrorKind:
//
//	err := client.Delete("missing.txt")
//	if errors.Is(err, ftp.KindFileUnavailable) {
//	    // 550
//	}
//
//	var replyErr *ftp.ReplyError
//	if errors.As(err, &replyErr) && replyErr.IsTemporary() {
//	    // retry later
//	}
//
// A truncated download fails with ErrTruncatedStream rather than returning
// a short buffer.
//
// # Progress
//
// Transfers accept a ProgressFunc called with the total and current byte
// counts. ReadProgress and WriteProgress adapt a ProgressListener.
//
// # Concurrency
//
// The FTP control connection is half-duplex. A Client or ControlConn must
// not be used from more than one goroutine at a time; open one per worker
// instead.
package ftp
