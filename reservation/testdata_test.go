package reservation

const airportsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Airports>
  <Airport Code="BOS" Name="Logan International">
    <Latitude>42.365613</Latitude>
    <Longitude>-71.009560</Longitude>
  </Airport>
  <Airport Code="GRU" Name="São Paulo Guarulhos International">
    <Latitude>-23.435556</Latitude>
    <Longitude>-46.473056</Longitude>
  </Airport>
</Airports>`

const airplanesXML = `<Airplanes>
  <Airplane Manufacturer="Airbus" Model="A320">
    <FirstClassSeats>12</FirstClassSeats>
    <CoachSeats>124</CoachSeats>
  </Airplane>
  <Airplane Manufacturer="Boeing" Model="747">
    <FirstClassSeats>24</FirstClassSeats>
    <CoachSeats>400</CoachSeats>
  </Airplane>
</Airplanes>`

const flightsXML = `<Flights>
  <Flight Airplane="A320" FlightTime="90" Number="2848">
    <Departure><Code>BOS</Code><Time>2016 May 10 00:36 GMT</Time></Departure>
    <Arrival><Code>DEN</Code><Time>2016 May 10 02:06 GMT</Time></Arrival>
    <Seating>
      <FirstClass Price="$1,134.32">5</FirstClass>
      <Coach Price="$98.55">21</Coach>
    </Seating>
  </Flight>
  <Flight Airplane="747" FlightTime="305" Number="3264">
    <Departure><Code>BOS</Code><Time>2016 May 10 14:00 GMT</Time></Departure>
    <Arrival><Code>LHR</Code><Time>2016 May 10 19:05 GMT</Time></Arrival>
    <Seating>
      <FirstClass Price="$2,310.00">24</FirstClass>
      <Coach Price="$412.10">0</Coach>
    </Seating>
  </Flight>
</Flights>`
