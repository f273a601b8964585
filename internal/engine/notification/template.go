package notification

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"Vigil/internal/backend/models"
)

const (
	dummyMonitorName = "Monitor Name not available"
	dummyStatus      = "Test"
)

// Render подставляет данные монитора и heartbeat в шаблон. Переменные доступны
// и как функции ({{name}}), и как поля ({{.name}}); NAME и STATUS старые имена
func Render(text, msg string, monitor *models.Monitor, heartbeat *models.Heartbeat) (string, error) {
	if text == "" {
		return "", nil
	}

	data := templateData(msg, monitor, heartbeat)

	funcs := template.FuncMap{}
	for _, key := range []string{"name", "status", "msg", "hostnameOrURL", "NAME", "STATUS"} {
		value := data[key]
		funcs[key] = func() interface{} { return value }
	}

	tmpl, err := template.New("notification").Option("missingkey=zero").Funcs(funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse notification template: %w", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render notification template: %w", err)
	}
	return out.String(), nil
}

func templateData(msg string, monitor *models.Monitor, heartbeat *models.Heartbeat) map[string]interface{} {
	name := dummyMonitorName
	if monitor != nil {
		name = monitor.Name
	}
	status := dummyStatus
	if heartbeat != nil {
		status = heartbeat.Status.Title()
	}

	monitorData := toMap(monitor.Redacted())
	heartbeatData := toMap(heartbeat)

	return map[string]interface{}{
		"name":          name,
		"status":        status,
		"msg":           msg,
		"hostnameOrURL": monitor.Address(),
		"NAME":          name,
		"STATUS":        status,
		"monitor":       monitorData,
		"heartbeat":     heartbeatData,
		"monitorJSON":   monitorData,
		"heartbeatJSON": heartbeatData,
	}
}

// toMap публичные поля структуры в виде map, как их видит JSON
func toMap(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	data, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}

// DefaultMessage текст уведомления без шаблона: "[name] [Up] msg"
func DefaultMessage(monitor *models.Monitor, heartbeat *models.Heartbeat) string {
	name := dummyMonitorName
	if monitor != nil {
		name = monitor.Name
	}
	if heartbeat == nil {
		return fmt.Sprintf("[%s] [%s]", name, dummyStatus)
	}
	message := fmt.Sprintf("[%s] [%s]", name, heartbeat.Status.Title())
	if heartbeat.Message != "" {
		message += " " + heartbeat.Message
	}
	return message
}
