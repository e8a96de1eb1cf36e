package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/karo/core"
)

type consoleService struct {
	conf          *core.Config
	logger        core.Logger
	out           io.Writer
	subjPrefix    string
	disableOutput bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService writes the messages to out instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger, out io.Writer) core.EmailService {
	return &consoleService{
		conf:       conf,
		logger:     logger,
		out:        out,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(svc.conf); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return
	}
	if msg.HasRecipients() && msg.HasContent() {
		svc.send(*msg)
		svc.mu.Lock()
		svc.sent = append(svc.sent, *msg)
		svc.mu.Unlock()
	}
}

func (svc *consoleService) send(msg core.EmailMessage) {
	body := new(strings.Builder)

	// Write mail header
	from := svc.conf.DefaultFromEmail()
	_, _ = fmt.Fprintf(body, "From: %s\r\n", from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain"}})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("creating text/plain part: %v", err), err)
		return
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("creating text/html part: %v", err), err)
			return
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	_ = altW.Close()

	if !svc.disableOutput {
		_, _ = fmt.Fprintln(svc.out, body.String())
	}
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ServiceMock renders and records messages synchronously, without output.
type ServiceMock struct {
	consoleService
}

var _ core.EmailService = (*ServiceMock)(nil)

func NewServiceMock(conf *core.Config, logger core.Logger) *ServiceMock {
	return &ServiceMock{
		consoleService: consoleService{
			conf:          conf,
			logger:        logger,
			out:           io.Discard,
			subjPrefix:    "[" + conf.AppName + "] ",
			disableOutput: true,
		},
	}
}

func (svc *ServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}

// SentMessages returns the messages sent so far.
func (svc *ServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

// Reset forgets the sent messages.
func (svc *ServiceMock) Reset() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
}
