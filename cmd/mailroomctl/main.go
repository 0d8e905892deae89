package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/mailroom/internal/mailer"
)

type client struct {
	BaseURL   string
	AdminKey  string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if c.AdminKey != "" {
		req.Header.Set("X-Admin-API-Key", c.AdminKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL  = envOr("MAILROOM_URL", "http://localhost:8080")
		adminKey = envOr("MAILROOM_ADMIN_KEY", "")
		out      = envOr("MAILROOM_OUT", "text")
		timeout  = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "mailroomctl",
		Short: "CLI de mailroom (dispatch, render y admin vía HTTP API)",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del API (env MAILROOM_URL)")
	root.PersistentFlags().StringVar(&adminKey, "admin-api-key", adminKey, "API key de /v1/admin (env MAILROOM_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL = baseURL
		cl.AdminKey = adminKey
		cl.OutFormat = out
	}

	// grupo admin
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operaciones administrativas (vía /v1/admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.Root().PersistentPreRun(cmd, args)
			if adminKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env MAILROOM_ADMIN_KEY)")
			}
			return nil
		},
	}

	cacheCmd := &cobra.Command{Use: "cache", Short: "Operaciones sobre el render cache"}

	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Vaciar el render cache completo",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("POST", "/v1/admin/cache/clear", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("cache clear fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	cacheInvalidateCmd := &cobra.Command{
		Use:   "invalidate <template-id>",
		Short: "Invalidar todas las entradas cacheadas de un template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/v1/admin/cache/templates/"+args[0], nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("cache invalidate fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	adminCmd.AddCommand(cacheCmd)

	// send: POST /v1/tenants/{tenant}/dispatch
	var (
		sendTenant   string
		sendTo       []string
		sendCc       []string
		sendBcc      []string
		sendReplyTo  string
		sendTemplate string
		sendVersion  int
		sendData     string
		sendSubject  string
		sendHTML     string
		sendText     string
	)
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Despachar un email (template o contenido crudo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sendTenant == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			if len(sendTo) == 0 {
				return fmt.Errorf("--to es requerido")
			}
			payload := map[string]any{"to": sendTo}
			if len(sendCc) > 0 {
				payload["cc"] = sendCc
			}
			if len(sendBcc) > 0 {
				payload["bcc"] = sendBcc
			}
			if sendReplyTo != "" {
				payload["reply_to"] = sendReplyTo
			}
			if sendTemplate != "" {
				payload["template"] = sendTemplate
				if sendVersion > 0 {
					payload["template_version"] = sendVersion
				}
			}
			if sendData != "" {
				var data map[string]any
				if err := json.Unmarshal([]byte(sendData), &data); err != nil {
					return fmt.Errorf("--data no es JSON valido: %w", err)
				}
				payload["data"] = data
			}
			if sendSubject != "" {
				payload["subject"] = sendSubject
			}
			if sendHTML != "" {
				payload["html"] = sendHTML
			}
			if sendText != "" {
				payload["text"] = sendText
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/v1/tenants/"+sendTenant+"/dispatch", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("send fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	sendCmd.Flags().StringVar(&sendTenant, "tenant", "", "Slug o ID del tenant")
	sendCmd.Flags().StringSliceVar(&sendTo, "to", nil, "Destinatarios (repetible)")
	sendCmd.Flags().StringSliceVar(&sendCc, "cc", nil, "CC (repetible)")
	sendCmd.Flags().StringSliceVar(&sendBcc, "bcc", nil, "BCC (repetible)")
	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "Reply-To")
	sendCmd.Flags().StringVar(&sendTemplate, "template", "", "Slug del template (modo template)")
	sendCmd.Flags().IntVar(&sendVersion, "version", 0, "Version del template (default: ultima activa)")
	sendCmd.Flags().StringVar(&sendData, "data", "", "Datos del template como JSON")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "Subject crudo (modo legacy o fallback)")
	sendCmd.Flags().StringVar(&sendHTML, "html", "", "HTML crudo (modo legacy o fallback)")
	sendCmd.Flags().StringVar(&sendText, "text", "", "Texto plano crudo (opcional)")

	// render: POST /v1/tenants/{tenant}/render (dry-run, no envia nada)
	var (
		renderTenant   string
		renderTemplate string
		renderVersion  int
		renderData     string
	)
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Renderizar un template sin despachar (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if renderTenant == "" {
				return fmt.Errorf("--tenant es requerido")
			}
			if renderTemplate == "" {
				return fmt.Errorf("--template es requerido")
			}
			payload := map[string]any{"template": renderTemplate}
			if renderVersion > 0 {
				payload["template_version"] = renderVersion
			}
			if renderData != "" {
				var data map[string]any
				if err := json.Unmarshal([]byte(renderData), &data); err != nil {
					return fmt.Errorf("--data no es JSON valido: %w", err)
				}
				payload["data"] = data
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/v1/tenants/"+renderTenant+"/render", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("render fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	renderCmd.Flags().StringVar(&renderTenant, "tenant", "", "Slug o ID del tenant")
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "Slug del template")
	renderCmd.Flags().IntVar(&renderVersion, "version", 0, "Version del template (default: ultima activa)")
	renderCmd.Flags().StringVar(&renderData, "data", "", "Datos del template como JSON")

	// smtp test: conexion directa, no pasa por el API
	var (
		smtpHost string
		smtpPort int
		smtpUser string
		smtpPass string
		smtpFrom string
		smtpTo   string
		smtpTLS  string
	)
	smtpCmd := &cobra.Command{Use: "smtp", Short: "Utilidades SMTP"}
	smtpTestCmd := &cobra.Command{
		Use:   "test",
		Short: "Enviar un email de prueba directo por SMTP (sin pasar por el API)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if smtpHost == "" || smtpFrom == "" || smtpTo == "" {
				return fmt.Errorf("--host, --from y --to son requeridos")
			}
			sender := mailer.NewSMTPSender(smtpHost, smtpPort, smtpFrom, smtpUser, smtpPass)
			sender.TLSMode = smtpTLS

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			msgID, err := sender.Send(ctx, &mailer.Message{
				To:      []string{smtpTo},
				Subject: "mailroom smtp test",
				HTML:    "<p>Si llego este mensaje, la configuracion SMTP funciona.</p>",
				Text:    "Si llego este mensaje, la configuracion SMTP funciona.",
			})
			if err != nil {
				return fmt.Errorf("smtp test fallo: %w", err)
			}
			fmt.Printf("ok message_id=%s\n", msgID)
			return nil
		},
	}
	smtpTestCmd.Flags().StringVar(&smtpHost, "host", "", "Host SMTP")
	smtpTestCmd.Flags().IntVar(&smtpPort, "port", 587, "Puerto SMTP")
	smtpTestCmd.Flags().StringVar(&smtpUser, "user", "", "Usuario SMTP")
	smtpTestCmd.Flags().StringVar(&smtpPass, "pass", "", "Password SMTP")
	smtpTestCmd.Flags().StringVar(&smtpFrom, "from", "", "Remitente")
	smtpTestCmd.Flags().StringVar(&smtpTo, "to", "", "Destinatario de prueba")
	smtpTestCmd.Flags().StringVar(&smtpTLS, "tls", "auto", "Modo TLS: auto|ssl|none")
	smtpCmd.AddCommand(smtpTestCmd)

	root.AddCommand(adminCmd)
	root.AddCommand(sendCmd)
	root.AddCommand(renderCmd)
	root.AddCommand(smtpCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
