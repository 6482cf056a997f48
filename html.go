/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

const (
	codeCookie   = "beludo.code"
	pseudoCookie = "beludo.pseudo"
)

// gamePage is newPage's sibling for interactive pages: same skeleton, but
// the body is not wrapped in a home link.
func gamePage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body>%s</body></html>", body))

	return htmlBody.String()
}

func redirectError(w http.ResponseWriter, r *http.Request, cfg *Config, text string) {
	http.Redirect(w, r, cfg.prefix+"/?error="+url.QueryEscape(text), http.StatusSeeOther)
}

func serveHomePage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		var body strings.Builder
		if e := r.URL.Query().Get("error"); e != "" {
			body.WriteString(fmt.Sprintf(`<p class="error">%s</p>`, html.EscapeString(e)))
		}
		body.WriteString(fmt.Sprintf(`<form method="post" action="%s/join">`, cfg.prefix))
		body.WriteString(`<input name="name" placeholder="Your name" maxlength="32">`)
		body.WriteString(`<input name="code" placeholder="Room code" maxlength="16">`)
		body.WriteString(`<button name="join" value="true">Join game</button>`)
		body.WriteString(`<button name="create" value="true">Create game</button>`)
		body.WriteString(`</form>`)

		_, _ = w.Write([]byte(gamePage("Beludo", body.String())))
	}
}

// serveJoinForm is the pre-join boundary: it validates the name and code,
// drops the identity cookies the room page checks, and redirects. The
// actual seat is only taken once the websocket sends its join event.
func serveJoinForm(cfg *Config, dir *Directory) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			redirectError(w, r, cfg, "That request made no sense, try again.")
			return
		}

		name := strings.TrimSpace(r.PostFormValue("name"))
		if name == "" {
			redirectError(w, r, cfg, "You cannot use an empty name.")
			return
		}

		var room *Room

		switch {
		case r.PostFormValue("join") == "true":
			code := strings.ToUpper(strings.TrimSpace(r.PostFormValue("code")))
			room = dir.get(code)
			if room == nil {
				redirectError(w, r, cfg, "That code does not exist. Check it, or create a game.")
				return
			}
			if room.isLaunched() {
				redirectError(w, r, cfg, "You cannot join a game already in progress.")
				return
			}
			if room.nameTaken(name) {
				redirectError(w, r, cfg, "That name is already taken.")
				return
			}

		case r.PostFormValue("create") == "true":
			room = dir.create()

		default:
			http.Redirect(w, r, cfg.prefix+"/", http.StatusSeeOther)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: codeCookie, Value: room.code, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: pseudoCookie, Value: url.QueryEscape(name), Path: "/"})
		http.Redirect(w, r, cfg.prefix+"/room/"+room.code, http.StatusSeeOther)
	}
}

func serveRoomPage(cfg *Config, dir *Directory) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := strings.ToUpper(ps.ByName("code"))

		room := dir.get(code)
		if room == nil {
			redirectError(w, r, cfg, "That code does not exist. Check it, or create a game.")
			return
		}
		if room.isLaunched() {
			redirectError(w, r, cfg, "You cannot join a game already in progress.")
			return
		}

		codeFromCookie, err := r.Cookie(codeCookie)
		if err != nil || codeFromCookie.Value != code {
			redirectError(w, r, cfg, "Please join through the home page.")
			return
		}

		pseudoFromCookie, err := r.Cookie(pseudoCookie)
		if err != nil || pseudoFromCookie.Value == "" {
			redirectError(w, r, cfg, "You have no name yet, join through the home page.")
			return
		}
		name, err := url.QueryUnescape(pseudoFromCookie.Value)
		if err != nil || strings.TrimSpace(name) == "" {
			redirectError(w, r, cfg, "You have no name yet, join through the home page.")
			return
		}
		if room.nameTaken(name) {
			redirectError(w, r, cfg, "That name is already taken.")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		var body strings.Builder
		body.WriteString(fmt.Sprintf(`<h1>Room %s</h1>`, html.EscapeString(code)))
		body.WriteString(fmt.Sprintf(`<img src="%s/room/%s/qr" alt="share" width="160" height="160">`, cfg.prefix, code))
		body.WriteString(`<ul id="players">`)
		for _, seat := range room.roster() {
			body.WriteString(fmt.Sprintf(`<li style="color:%s">%s</li>`, seat.color, html.EscapeString(seat.name)))
		}
		body.WriteString(`</ul>`)
		body.WriteString(roomScript(cfg, code, name))

		_, _ = w.Write([]byte(gamePage("Beludo "+code, body.String())))
	}
}

// roomScript is the minimal in-page client: it joins over the websocket and
// mirrors broadcasts into the page. The server is the game; this stays thin.
func roomScript(cfg *Config, code, name string) string {
	var s strings.Builder

	s.WriteString(`<div id="table"></div><pre id="log"></pre>`)
	s.WriteString(`<div id="controls">`)
	s.WriteString(`<button onclick="send({type:'launch'})">Launch</button>`)
	s.WriteString(`<button onclick="send({type:'ready'})">Ready</button>`)
	s.WriteString(`<input id="face" type="number" min="1" max="6" placeholder="face">`)
	s.WriteString(`<input id="quantity" type="number" min="1" placeholder="how many">`)
	s.WriteString(`<button onclick="raise()">Raise</button>`)
	s.WriteString(`<button onclick="send({type:'play',action:'liar'})">Liar!</button>`)
	s.WriteString(`<button onclick="send({type:'play',action:'equal'})">Spot on!</button>`)
	s.WriteString(`</div><script>`)
	s.WriteString(`const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';`)
	s.WriteString(fmt.Sprintf(`const ws = new WebSocket(proto + location.host + %q);`, cfg.prefix+"/room/"+code+"/ws"))
	s.WriteString(`function send(msg) { ws.send(JSON.stringify(msg)); }`)
	s.WriteString(`function raise() { send({type:'play',action:'raise',face:Number(face.value),quantity:Number(quantity.value)}); }`)
	s.WriteString(fmt.Sprintf(`ws.onopen = () => send({type:'join',code:%q,name:%q});`, code, name))
	s.WriteString(`ws.onmessage = (ev) => { document.getElementById('log').textContent += ev.data + '\n'; };`)
	s.WriteString(`</script>`)

	return s.String()
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
