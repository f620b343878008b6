// controltoken mints a bearer token for POST /connect, signed with the private half of
// CONTROL_JWT_PUBLIC_KEY.
package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/security"
)

func main() {
	key := flag.StringP("key", "k", "", "PEM private key (inline or file path), RSA or ECDSA")
	subject := flag.StringP("subject", "s", "", "Token subject, e.g. the operator's handle")
	issuer := flag.String("issuer", os.Getenv("CONTROL_JWT_ISSUER"), "iss claim")
	audience := flag.String("audience", os.Getenv("CONTROL_JWT_AUDIENCE"), "aud claim")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *key == "" || *subject == "" {
		fmt.Fprintln(os.Stderr, "controltoken: --key and --subject are required")
		flag.Usage()
		os.Exit(2)
	}
	signer, err := security.ParsePrivateKey(*key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "controltoken: key:", err)
		os.Exit(1)
	}
	token, exp, err := security.NewIssuer(signer, *issuer, *audience, *ttl).Issue(*subject, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, "controltoken:", err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
}
