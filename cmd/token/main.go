// Command token issues a bearer token for the upload gateway, signed with the
// gateway's configured secret (same -c, CASUP_* and -s/-t sources).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/casupload/internal/flagx"
	"github.com/dmitrijs2005/casupload/internal/server/auth"
	"github.com/dmitrijs2005/casupload/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("sub", "uploader", "token subject")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-sub"})); err != nil {
		log.Fatal(err)
	}

	token, err := auth.GenerateToken(*subject, []byte(cfg.SecretKey), cfg.TokenValidityDuration)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
