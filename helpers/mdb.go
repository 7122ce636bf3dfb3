package helpers

import (
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/Seklfreak/Lumi/cache"
	"github.com/Seklfreak/Lumi/metrics"
	"github.com/Seklfreak/Lumi/models"
	"github.com/globalsign/mgo"
)

var (
	mDbSession  *mgo.Session
	mDbDatabase string
)

type mgoLogger struct {
}

func (mgol mgoLogger) Output(calldepth int, s string) error {
	// ignore SYNC messages
	if strings.HasPrefix(s, "SYNC ") {
		return nil
	}

	cache.GetLogger().WithField("module", "mdb").Debug(s)
	return nil
}

// ConnectMDB connects to mongodb and stores the session.
// timeout bounds the dial and every socket operation of the session.
func ConnectMDB(url string, database string, timeout time.Duration) {
	var err error

	log := cache.GetLogger()
	log.WithField("module", "mdb").Info("Connecting to " + url)

	mgo.SetDebug(false)
	if DEBUG_MODE {
		mgo.SetLogger(new(mgoLogger))
	}

	newUrl := strings.TrimSuffix(url, "?ssl=true")
	newUrl = strings.Replace(newUrl, "ssl=true&", "", -1)

	dialInfo, err := mgo.ParseURL(newUrl)
	if err != nil {
		log.WithField("module", "mdb").Error(err.Error())
		panic(err)
	}
	dialInfo.Timeout = timeout

	// setup TLS if we use SSL
	if newUrl != url {
		tlsConfig := &tls.Config{}

		dialInfo.DialServer = func(addr *mgo.ServerAddr) (net.Conn, error) {
			conn, err := tls.Dial("tcp", addr.String(), tlsConfig)
			return conn, err
		}
	}

	mDbSession, err = mgo.DialWithInfo(dialInfo)
	if err != nil {
		log.WithField("module", "mdb").Error(err.Error())
		panic(err)
	}

	mDbSession.SetMode(mgo.Primary, false)
	mDbSession.SetSafe(&mgo.Safe{})
	mDbSession.SetSocketTimeout(timeout)

	mDbDatabase = database

	log.WithField("module", "mdb").Info("Connected!")
}

// GetMDbSession is a simple getter for the mongodb session.
// Callers Copy() it per operation and Close() the copy.
func GetMDbSession() *mgo.Session {
	return mDbSession
}

// MdbCollection returns the collection on a copy of the session, close the returned session when done
func MdbCollection(collection models.MongoDbCollection) (*mgo.Session, *mgo.Collection) {
	session := mDbSession.Copy()
	return session, session.DB(mDbDatabase).C(collection.String())
}

// MdbTimed records the duration of a store operation, use as defer MdbTimed(collection, "operation", time.Now())
func MdbTimed(collection models.MongoDbCollection, operation string, start time.Time) {
	metrics.ObserveStore(collection.String(), operation, start)

	took := time.Since(start)
	if took > time.Second {
		cache.GetLogger().WithField("module", "mdb").Warnf(
			"%s on %s took %s", operation, collection.String(), took.String())
	}
}

// IsMdbNotFound returns true if the given error is a not found error from MongoDB
func IsMdbNotFound(err error) bool {
	return err == mgo.ErrNotFound
}
