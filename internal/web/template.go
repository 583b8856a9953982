package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pca9634d/internal/pca9634"
	"github.com/sweeney/pca9634d/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"health": status.Health,
	"hex": func(v interface{}) string {
		return fmt.Sprintf("0x%02X", v)
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v*100)
	},
	"register": func(f pca9634.Frame, ch int) byte {
		return f.Duty(ch)
	},
	"ledout": func(f pca9634.Frame, ch int) string {
		return f.LEDOut(ch).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>PCA9634 Lighting</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.OK { color: green; font-weight: bold; }
.DEGRADED { color: orange; font-weight: bold; }
.FAILED { color: red; font-weight: bold; }
.UNINITIALIZED { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>PCA9634 Lighting{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

{{range .Devices}}
<h2>{{.Name}} <small>{{hex .Chip.Address}}</small> <span class="{{health .Chip}}">{{health .Chip}}</span></h2>
<table>
<tr><th>Channel</th><th>Name</th><th>Value</th><th>Register</th><th>LEDOUT</th></tr>
{{$frame := .Chip.Frame}}{{$dev := .Name}}{{range .Channels}}<tr><td>{{.Index}}{{if .GroupMember}} (group){{end}}</td><td>{{.Name}}</td><td id="v-{{$dev}}-{{.Name}}">{{percent .Value}}</td><td>{{register $frame .Index}}</td><td>{{ledout $frame .Index}}</td></tr>
{{end}}<tr><td>GRPPWM</td><td></td><td>{{.Chip.GroupPWM}}</td><td></td><td></td></tr>
<tr><td>GRPFREQ</td><td></td><td>{{.Chip.GroupFrequency}}</td><td></td><td></td></tr>
</table>
<p>MODE1 {{hex .Chip.Mode1}} MODE2 {{hex .Chip.Mode2}} flushes {{.Chip.Flushes}} errors {{.Chip.FlushErrors}}{{if .Chip.LastError}} last: {{.Chip.LastError}}{{end}}</p>
{{else}}
<p>No devices configured.</p>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topics</th><td>{{.Config.TopicPrefix}}/&lt;device&gt;/&lt;target&gt;/set</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Commands</h2>
<table>
<tr><th>Applied</th><td>{{.Counts.Applied}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
<tr><th>Flush errors</th><td>{{.Counts.FlushErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Outputs</th><td>{{if .OutputEnabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Bus</th><td>{{.Config.Bus}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Config.TopicPrefix}}/+/+/state";
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.state) {
        var el = document.getElementById("v-" + msg.state.device + "-" + msg.state.target);
        if (el) {
          el.textContent = (msg.state.value * 100).toFixed(1) + "%";
        }
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
