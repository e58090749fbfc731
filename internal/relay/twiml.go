package relay

import (
    "encoding/xml"
    "log"
    "net/http"
)

type connectDoc struct {
    XMLName xml.Name `xml:"Response"`
    Connect struct {
        Relay relayElem `xml:"ConversationRelay"`
    } `xml:"Connect"`
}

type relayElem struct {
    URL             string `xml:"url,attr"`
    WelcomeGreeting string `xml:"welcomeGreeting,attr,omitempty"`
}

// HandleTwiML returns the call-connect document that points the telephony
// gateway at this server's WebSocket endpoint.
func (s *Server) HandleTwiML(w http.ResponseWriter, r *http.Request) {
    scheme := "wss"
    if r.TLS == nil {
        scheme = "ws"
    }
    var doc connectDoc
    doc.Connect.Relay = relayElem{
        URL:             scheme + "://" + r.Host + "/ws",
        WelcomeGreeting: s.Cfg.Relay.WelcomeGreeting,
    }

    w.Header().Set("Content-Type", "text/xml")
    w.Write([]byte(xml.Header))
    if err := xml.NewEncoder(w).Encode(doc); err != nil {
        log.Printf("[relay] twiml encode: %v", err)
    }
}
