package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/camlink/pkg/bridge/mqtt"
	"github.com/robotalks/camlink/pkg/bridge/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/camlink/"
)

func init() {
	if val := os.Getenv("CAMLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("+/"+mqtt.MetaTopic, mqtt.Handler(func(topic string, payload []byte) {
		if len(payload) == 0 {
			log.Printf("%s: offline", topic)
			return
		}
		log.Printf("%s: %s", topic, string(payload))
	}))
	q.Sub("+/"+mqtt.EventTopic, mqtt.Handler(func(topic string, payload []byte) {
		ev, err := msgs.DecodeEvent(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] connected=%v %q", strings.TrimSuffix(topic, "/"+mqtt.EventTopic),
			ev.Kind, ev.Connected, ev.Data)
	}))
	q.Sub("+/"+mqtt.ReplyTopic, mqtt.Handler(func(topic string, payload []byte) {
		reply, err := msgs.DecodeCommandReply(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: reply %s", topic, reply.String())
	}))
	<-(chan struct{})(nil)
}
