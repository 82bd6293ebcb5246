package service

import (
	"strings"
)

// uaRule одно правило классификации: метка и подстроки-признаки
type uaRule struct {
	label   string
	needles []string
}

// Порядок правил значим: выигрывает первое совпадение.
// Edge и Opera содержат "Chrome" в UA, Chrome содержит "Safari",
// поэтому более специфичные правила идут первыми.
var browserRules = []uaRule{
	{"Edge", []string{"Edg"}},
	{"Opera", []string{"OPR", "Opera"}},
	{"Firefox", []string{"Firefox"}},
	{"Chrome", []string{"Chrome"}},
	{"Safari", []string{"Safari"}},
}

var osRules = []uaRule{
	{"Android", []string{"Android"}},
	{"iOS", []string{"iPhone", "iPad", "iPod"}},
	{"Windows", []string{"Windows"}},
	{"macOS", []string{"Macintosh", "Mac OS"}},
	{"Linux", []string{"Linux"}},
}

var deviceRules = []uaRule{
	{"Mobile", []string{"Mobi"}},
	{"Tablet", []string{"Tablet", "iPad"}},
}

func classifyUA(ua string, rules []uaRule, fallback string) string {
	for _, rule := range rules {
		for _, needle := range rule.needles {
			if strings.Contains(ua, needle) {
				return rule.label
			}
		}
	}
	return fallback
}

// ClassifyBrowser определяет браузер по user-agent
func ClassifyBrowser(ua string) string {
	return classifyUA(ua, browserRules, "Other")
}

// ClassifyOS определяет операционную систему по user-agent
func ClassifyOS(ua string) string {
	return classifyUA(ua, osRules, "Other")
}

// ClassifyDevice определяет тип устройства по user-agent
func ClassifyDevice(ua string) string {
	return classifyUA(ua, deviceRules, "Desktop")
}
